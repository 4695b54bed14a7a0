package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
)

type docTypeAPI struct {
	service *doctype.Service
}

func registerDocTypeAPI(g *echo.Group, svc *doctype.Service) {
	api := docTypeAPI{service: svc}

	dg := g.Group("/doctypes")
	dg.GET("", api.docTypeQuery)
	dg.POST("", api.docTypeCreate, adminMiddleware())
	dg.GET("/:id", api.docTypeRetrieve)
	dg.PUT("/:id", api.docTypeUpdate, adminMiddleware())
	dg.DELETE("/:id", api.docTypeDeactivate, adminMiddleware())
}

// docTypeQuery lists the active types in display order; `?all=true` includes inactive ones (admin only).
func (api *docTypeAPI) docTypeQuery(ctx echo.Context) error {
	var (
		dts []doctype.DocumentType
		err error
	)
	if ctx.QueryParam("all") == "true" {
		if !contextHasAnyRole(ctx, []string{core.RoleAdmin}) {
			return errHttpForbidden
		}
		dts, err = api.service.Query(ctx.Request().Context())
	} else {
		dts, err = api.service.ListActive(ctx.Request().Context())
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dts)
}

func (api *docTypeAPI) docTypeCreate(ctx echo.Context) error {
	data := new(doctype.NewDocumentType)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	dt, err := api.service.Create(ctx.Request().Context(), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, dt)
}

func (api *docTypeAPI) docTypeRetrieve(ctx echo.Context) error {
	dt, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dt)
}

func (api *docTypeAPI) docTypeUpdate(ctx echo.Context) error {
	data := new(doctype.UpdateDocumentType)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	dt, err := api.service.Update(ctx.Request().Context(), ctx.Param("id"), *data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dt)
}

func (api *docTypeAPI) docTypeDeactivate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	dt, err := api.service.Deactivate(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dt)
}
