package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/fyp/core/result"
)

func (cli *commandLine) compute(projectID, by string) error {
	res, err := cli.results.Compute(context.Background(), projectID, adminActor(by))
	if err != nil {
		return err
	}
	return cli.printResult(res)
}

func (cli *commandLine) release(projectID, by string) error {
	res, err := cli.results.Release(context.Background(), projectID, adminActor(by))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.output(), "final result of project %s released: %.2f\n", res.ProjectID, res.TotalScore)
	return nil
}

func (cli *commandLine) printResult(res result.FinalResult) error {
	w := tabwriter.NewWriter(cli.output(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tVERSION\tSUPERVISOR\tCOMMITTEE\tWEIGHTED")
	for _, item := range res.Details.Items {
		fmt.Fprintf(w, "%s\tv%d\t%.2f x %d%%\t%.2f x %d%%\t%.2f\n",
			item.DocTypeCode, item.Version,
			item.SupervisorScore, item.SupervisorWeight,
			item.CommitteeAvgScore, item.CommitteeWeight,
			item.WeightedScore)
	}
	fmt.Fprintf(w, "TOTAL\t\t\t\t%.2f / %.0f\n", res.TotalScore, res.Details.MaxScore)
	return w.Flush()
}
