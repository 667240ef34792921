package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core/project"
)

type projectApi struct {
	svc *project.Service
}

func registerProjectAPI(g *echo.Group, jwt, professor echo.MiddlewareFunc, svc *project.Service) {
	api := projectApi{svc: svc}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.GET("/statuses", api.queryStatuses)

	// detail endpoints
	pg.GET("/:id", api.retrieve)
	pg.DELETE("/:id", api.destroy, professor)
	pg.GET("/:id/module-groups", api.moduleGroups)
	pg.GET("/:id/proposals", api.proposals)
	pg.POST("/:id/proposals", api.createProposal)
}

// Handlers

func (api *projectApi) query(ctx echo.Context) error {
	filter := new(project.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []project.Project{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	projects, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) queryStatuses(ctx echo.Context) error {
	statuses, err := api.svc.Statuses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying statuses")
	}
	return ctx.JSON(http.StatusOK, statuses)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	proj, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting project")
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) moduleGroups(ctx echo.Context) error {
	groups, err := api.svc.ModuleGroups(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "grouping project modules")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *projectApi) proposals(ctx echo.Context) error {
	identity, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	lists, err := api.svc.Proposals(ctx.Request().Context(), identity, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing proposals")
	}
	return ctx.JSON(http.StatusOK, lists)
}

func (api *projectApi) createProposal(ctx echo.Context) error {
	identity, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	prop, err := api.svc.CreateProposal(ctx.Request().Context(), identity, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "creating proposal")
	}
	return ctx.JSON(http.StatusCreated, prop)
}
