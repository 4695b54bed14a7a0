package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
)

// syncProject mirrors a project of the group formation workflow. An empty approved date keeps it unapproved.
func (cli *commandLine) syncProject(id, title, approved string) error {
	ctx := context.Background()
	id = core.CleanString(id)

	p, err := cli.projects.GetProject(ctx, id)
	switch {
	case core.IsNotFound(err):
		p = project.Project{ID: id, CreatedAt: core.NowFunc()}
	case err != nil:
		return err
	}
	if title = core.CleanString(title); title != "" {
		p.Title = title
	}
	if approved != "" {
		at, err := parseDate(approved)
		if err != nil {
			return err
		}
		p.ApprovedAt = &at
	}

	if _, err := cli.projects.SaveProject(ctx, p); err != nil {
		return err
	}
	fmt.Fprintf(cli.output(), "project %s saved\n", p.ID)
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = core.CleanString(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}
