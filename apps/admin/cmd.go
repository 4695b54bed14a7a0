package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/result"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	db       *sql.DB
	conf     *core.Config
	projects project.Repository
	docTypes *doctype.Service
	results  *result.Service

	in  io.Reader
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.output(), "Usage:")
	fmt.Fprintln(cli.output(), "  createdb - create the app database user & database if they do not exist")
	fmt.Fprintln(cli.output(), "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the app database")
	fmt.Fprintln(cli.output(), "  adddoctype -code CODE -title TITLE -ws WEIGHT -wc WEIGHT [-order N] - register a document type")
	fmt.Fprintln(cli.output(), "  doctypes - list the document types")
	fmt.Fprintln(cli.output(), "  syncproject -id ID -title TITLE [-approved DATE] - create or update a project")
	fmt.Fprintln(cli.output(), "  compute -project ID [-by ID] - compute the final result of a project")
	fmt.Fprintln(cli.output(), "  release -project ID [-by ID] [-yes] - release the final result of a project")
}

func (cli *commandLine) output() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) input() io.Reader {
	if cli.in == nil {
		return os.Stdin
	}
	return cli.in
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addDocTypeCmd := flag.NewFlagSet("adddoctype", flag.ContinueOnError)
	addDocTypeCode := addDocTypeCmd.String("code", "", "The document type code: "+joinCodes())
	addDocTypeTitle := addDocTypeCmd.String("title", "", "The document type title.")
	addDocTypeWS := addDocTypeCmd.Int("ws", -1, "The supervisor weight (%).")
	addDocTypeWC := addDocTypeCmd.Int("wc", -1, "The committee weight (%).")
	addDocTypeOrder := addDocTypeCmd.Int("order", 0, "The display order.")

	syncProjectCmd := flag.NewFlagSet("syncproject", flag.ContinueOnError)
	syncProjectID := syncProjectCmd.String("id", "", "The project ID.")
	syncProjectTitle := syncProjectCmd.String("title", "", "The project title.")
	syncProjectApproved := syncProjectCmd.String("approved", "", "When the proposal was approved (YYYY-MM-DD or RFC3339).")

	computeCmd := flag.NewFlagSet("compute", flag.ContinueOnError)
	computeProject := computeCmd.String("project", "", "The project ID.")
	computeBy := computeCmd.String("by", "admin", "Who is computing the result.")

	releaseCmd := flag.NewFlagSet("release", flag.ContinueOnError)
	releaseProject := releaseCmd.String("project", "", "The project ID.")
	releaseBy := releaseCmd.String("by", "admin", "Who is releasing the result.")
	releaseYes := releaseCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adddoctype":
		if err := addDocTypeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addDocTypeCode == "" || *addDocTypeTitle == "" || *addDocTypeWS < 0 || *addDocTypeWC < 0 {
			addDocTypeCmd.Usage()
			return errHelp
		}
		return cli.addDocType(*addDocTypeCode, *addDocTypeTitle, *addDocTypeWS, *addDocTypeWC, *addDocTypeOrder)
	case "doctypes":
		return cli.listDocTypes()
	case "syncproject":
		if err := syncProjectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *syncProjectID == "" {
			syncProjectCmd.Usage()
			return errHelp
		}
		return cli.syncProject(*syncProjectID, *syncProjectTitle, *syncProjectApproved)
	case "compute":
		if err := computeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *computeProject == "" {
			computeCmd.Usage()
			return errHelp
		}
		return cli.compute(*computeProject, *computeBy)
	case "release":
		if err := releaseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *releaseProject == "" {
			releaseCmd.Usage()
			return errHelp
		}
		if !*releaseYes {
			if !isTerminalFunc(int(syscall.Stdin)) {
				return errors.New("stdin is not a terminal: use -yes to release without confirmation")
			}
			ok, err := cli.confirm(fmt.Sprintf("Release the final result of project %s? It cannot be undone. [y/N] ", *releaseProject))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}
		return cli.release(*releaseProject, *releaseBy)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) confirm(prompt string) (bool, error) {
	fmt.Fprint(cli.output(), prompt)
	var answer string
	if _, err := fmt.Fscanln(cli.input(), &answer); err != nil && err.Error() != "unexpected newline" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func adminActor(id string) core.Actor {
	return core.Actor{ID: core.CleanString(id), Role: core.RoleAdmin}
}

func joinCodes() string {
	codes := make([]string, 0, len(doctype.AllCodes))
	for _, c := range doctype.AllCodes {
		codes = append(codes, string(c))
	}
	return strings.Join(codes, ", ")
}
