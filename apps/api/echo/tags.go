package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core/project"
)

type tagApi struct {
	svc *project.Service
}

func registerTagAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service) {
	api := tagApi{svc: svc}

	tg := g.Group("/tags", jwt)
	tg.GET("/suggestions", api.suggest)
	tg.POST("/recommendations", api.recommend)
}

// suggest autocompletes `?q=` with existing tags, most similar first.
func (api *tagApi) suggest(ctx echo.Context) error {
	tags, err := api.svc.SuggestTags(ctx.Request().Context(), ctx.QueryParam("q"), bindLimit(ctx))
	if err != nil {
		return errors.Wrap(err, "suggesting tags")
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *tagApi) recommend(ctx echo.Context) error {
	var current []project.Tag
	if err := bindJSON(ctx, &current); err != nil {
		return err
	}
	tags, err := api.svc.Recommend(ctx.Request().Context(), current)
	if err != nil {
		return errors.Wrap(err, "recommending tags")
	}
	return ctx.JSON(http.StatusOK, tags)
}
