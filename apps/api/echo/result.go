package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/result"
)

type resultAPI struct {
	service *result.Service
}

func registerResultAPI(g *echo.Group, svc *result.Service) {
	api := resultAPI{service: svc}

	rg := g.Group("/results/:pid")
	rg.GET("", api.resultRetrieve)
	rg.POST("/compute", api.resultCompute, roleMiddleware(core.RoleCoordinator))
	rg.POST("/release", api.resultRelease, roleMiddleware(core.RoleCoordinator))
}

// resultRetrieve hides unreleased results from students.
func (api *resultAPI) resultRetrieve(ctx echo.Context) error {
	pid := ctx.Param("pid")
	res, err := api.service.Get(ctx.Request().Context(), pid)
	if err != nil {
		return err
	}
	if !res.Released && !contextHasAnyRole(ctx, []string{core.RoleCoordinator, core.RoleSupervisor, core.RoleEvaluator}) {
		return core.NewNotFoundError(result.Entity, pid)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultAPI) resultCompute(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	res, err := api.service.Compute(ctx.Request().Context(), ctx.Param("pid"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultAPI) resultRelease(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	res, err := api.service.Release(ctx.Request().Context(), ctx.Param("pid"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
