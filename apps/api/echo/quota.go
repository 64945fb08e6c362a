package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core/quota"
)

type quotaApi struct {
	svc *quota.Service
}

func registerQuotaAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quota.Service) {
	api := quotaApi{svc: svc}

	qg := g.Group("/quotas", jwt)
	qg.GET("", api.query, staffMiddleware())
	qg.GET("/availability", api.availability)
	qg.POST("", api.create, adminMiddleware())
	qg.POST("/seed", api.seed, adminMiddleware())

	dg := qg.Group("/:id", adminMiddleware())
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *quotaApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data quota.NewQuota
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuota")
	}

	q, err := api.svc.Create(data, actor)
	if err != nil {
		return errors.Wrap(err, "creating quota")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quotaApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	statuses, err := api.svc.All(actor)
	if err != nil {
		return errors.Wrap(err, "querying quotas")
	}
	return ctx.JSON(http.StatusOK, statuses)
}

// availability is consulted by the application form while the guardian picks a
// level; any authenticated caller may hit it.
func (api *quotaApi) availability(ctx echo.Context) error {
	availability, err := api.svc.CheckAvailability(
		ctx.QueryParam("grade_level"),
		ctx.QueryParam("shift"),
		ctx.QueryParam("specialty"),
	)
	if err != nil {
		return errors.Wrap(err, "checking availability")
	}
	return ctx.JSON(http.StatusOK, availability)
}

func (api *quotaApi) seed(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	created, err := api.svc.Seed(actor)
	if err != nil {
		return errors.Wrap(err, "seeding quotas")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"created": created})
}

func (api *quotaApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data quota.UpdateQuota
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuota")
	}

	q, err := api.svc.Update(ctx.Param("id"), data, actor)
	if err != nil {
		return errors.Wrap(err, "updating quota")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quotaApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Remove(ctx.Param("id"), actor); err != nil {
		return errors.Wrap(err, "deleting quota")
	}
	return ctx.NoContent(http.StatusNoContent)
}
