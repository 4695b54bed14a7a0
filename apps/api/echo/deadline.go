package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
)

type deadlineAPI struct {
	service *deadline.Service
}

func registerDeadlineAPI(g *echo.Group, svc *deadline.Service) {
	api := deadlineAPI{service: svc}

	bg := g.Group("/batches", roleMiddleware(core.RoleCoordinator))
	bg.GET("", api.batchQuery)
	bg.POST("", api.batchCreate)
	bg.GET("/:id", api.batchRetrieve)
	bg.DELETE("/:id", api.batchDeactivate)
}

func (api *deadlineAPI) batchQuery(ctx echo.Context) error {
	batches, err := api.service.Query(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *deadlineAPI) batchCreate(ctx echo.Context) error {
	data := new(deadline.NewBatch)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	b, err := api.service.CreateBatch(ctx.Request().Context(), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *deadlineAPI) batchRetrieve(ctx echo.Context) error {
	b, err := api.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *deadlineAPI) batchDeactivate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	b, err := api.service.Deactivate(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}
