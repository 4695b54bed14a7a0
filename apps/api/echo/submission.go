package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/submission"
)

type submissionAPI struct {
	service *submission.Service
	marks   *evaluation.Service
}

// transition is a submission state change that only needs the actor.
type transition func(ctx context.Context, id string, by core.Actor) (submission.Submission, error)

func registerSubmissionAPI(g *echo.Group, svc *submission.Service, marks *evaluation.Service) {
	api := submissionAPI{service: svc, marks: marks}

	sg := g.Group("/submissions")
	sg.POST("", api.submissionUpload, roleMiddleware(core.RoleStudent))

	dg := sg.Group("/:id")
	dg.GET("", api.submissionRetrieve)
	dg.POST("/final", api.transit(svc.MarkFinal), roleMiddleware(core.RoleStudent))
	dg.POST("/approve", api.submissionApprove, roleMiddleware(core.RoleSupervisor))
	dg.POST("/revision", api.submissionRequestRevision, roleMiddleware(core.RoleSupervisor))
	dg.POST("/lock", api.transit(svc.LockForEvaluation), roleMiddleware(core.RoleCoordinator))
	dg.POST("/start", api.transit(svc.StartEvaluation), roleMiddleware(core.RoleCoordinator))
	dg.POST("/finalize", api.transit(svc.FinalizeEvaluation), roleMiddleware(core.RoleCoordinator))

	// evaluation marks
	mg := dg.Group("/marks")
	mg.GET("", api.marksSummary, roleMiddleware(core.RoleCoordinator, core.RoleSupervisor, core.RoleEvaluator))
	mg.PUT("", api.marksSubmit, roleMiddleware(core.RoleEvaluator))
}

func (api *submissionAPI) submissionUpload(ctx echo.Context) error {
	data := new(submission.NewUpload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	sub, err := api.service.Upload(ctx.Request().Context(), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionAPI) submissionRetrieve(ctx echo.Context) error {
	sub, err := api.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionAPI) transit(fn transition) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return err
		}

		sub, err := fn(ctx.Request().Context(), ctx.Param("id"), actor)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, sub)
	}
}

func (api *submissionAPI) submissionApprove(ctx echo.Context) error {
	data := new(submission.Approval)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	sub, err := api.service.Approve(ctx.Request().Context(), ctx.Param("id"), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionAPI) submissionRequestRevision(ctx echo.Context) error {
	data := new(submission.RevisionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	sub, err := api.service.RequestRevision(ctx.Request().Context(), ctx.Param("id"), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionAPI) marksSummary(ctx echo.Context) error {
	sum, err := api.marks.Summarize(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

// marksSubmit records the marks of the calling evaluator.
func (api *submissionAPI) marksSubmit(ctx echo.Context) error {
	data := new(evaluation.NewMarks)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	marks, err := api.marks.SubmitOrUpdate(ctx.Request().Context(), ctx.Param("id"), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, marks)
}
