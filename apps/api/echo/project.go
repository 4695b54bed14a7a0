package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/submission"
)

type (
	projectAPI struct {
		projects    project.Repository
		submissions *submission.Service
		deadlines   *deadline.Service
	}

	syncProjectRequest struct {
		Title      string     `json:"title"`
		ApprovedAt *time.Time `json:"approved_at"`
	}

	deadlineResponse struct {
		DocumentTypeID string     `json:"document_type_id"`
		DeadlineDate   *time.Time `json:"deadline_date"` // null when the batch sets none
	}
)

func registerProjectAPI(g *echo.Group, projects project.Repository, submissions *submission.Service, deadlines *deadline.Service) {
	api := projectAPI{projects: projects, submissions: submissions, deadlines: deadlines}

	pg := g.Group("/projects/:pid")
	pg.GET("", api.projectRetrieve)
	pg.PUT("", api.projectSync, adminMiddleware())
	pg.GET("/batch", api.projectBatch)

	dg := pg.Group("/documents/:dtid")
	dg.GET("/deadline", api.documentDeadline)
	dg.GET("/submissions", api.documentHistory)
	dg.GET("/submissions/latest", api.documentLatest)
}

func (api *projectAPI) projectRetrieve(ctx echo.Context) error {
	p, err := api.projects.GetProject(ctx.Request().Context(), ctx.Param("pid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// projectSync mirrors a project owned by the group formation & approval workflows.
func (api *projectAPI) projectSync(ctx echo.Context) error {
	data := new(syncProjectRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := core.CleanString(ctx.Param("pid"))

	p, err := api.projects.GetProject(rctx, id)
	switch {
	case core.IsNotFound(err):
		p = project.Project{ID: id, CreatedAt: core.NowFunc()}
	case err != nil:
		return err
	}
	if title := core.CleanString(data.Title); title != "" {
		p.Title = title
	}
	if data.ApprovedAt != nil {
		at := data.ApprovedAt.UTC()
		p.ApprovedAt = &at
	}

	if p, err = api.projects.SaveProject(rctx, p); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// projectBatch returns the deadline batch applicable to the project, or 204 when there is none.
func (api *projectAPI) projectBatch(ctx echo.Context) error {
	b, err := api.deadlines.ResolveForProject(ctx.Request().Context(), ctx.Param("pid"))
	if err != nil {
		return err
	}
	if b == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	b.SortDeadlines()
	return ctx.JSON(http.StatusOK, b)
}

func (api *projectAPI) documentDeadline(ctx echo.Context) error {
	dtID := ctx.Param("dtid")
	at, ok, err := api.deadlines.DeadlineFor(ctx.Request().Context(), ctx.Param("pid"), dtID)
	if err != nil {
		return err
	}
	resp := deadlineResponse{DocumentTypeID: dtID}
	if ok {
		resp.DeadlineDate = &at
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *projectAPI) documentHistory(ctx echo.Context) error {
	subs, err := api.submissions.History(ctx.Request().Context(), ctx.Param("pid"), ctx.Param("dtid"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *projectAPI) documentLatest(ctx echo.Context) error {
	sub, err := api.submissions.Latest(ctx.Request().Context(), ctx.Param("pid"), ctx.Param("dtid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
