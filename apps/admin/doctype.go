package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/fyp/core/doctype"
)

func (cli *commandLine) addDocType(code, title string, ws, wc, order int) error {
	dt, err := cli.docTypes.Create(context.Background(), doctype.NewDocumentType{
		Code:             code,
		Title:            title,
		WeightSupervisor: ws,
		WeightCommittee:  wc,
		DisplayOrder:     order,
	}, adminActor("admin"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.output(), "document type %s created: %s\n", dt.Code, dt.ID)
	return nil
}

func (cli *commandLine) listDocTypes() error {
	dts, err := cli.docTypes.Query(context.Background())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.output(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tCODE\tTITLE\tSUPERVISOR\tCOMMITTEE\tACTIVE\tID")
	for _, dt := range dts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\t%d%%\t%t\t%s\n",
			dt.DisplayOrder, dt.Code, dt.Title, dt.WeightSupervisor, dt.WeightCommittee, dt.IsActive, dt.ID)
	}
	return w.Flush()
}
