package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core/project"
)

type studyCourseApi struct {
	svc *project.Service
}

func registerStudyCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service) {
	api := studyCourseApi{svc: svc}

	sg := g.Group("/study-courses", jwt)
	sg.GET("", api.query)
	sg.GET("/:id/modules", api.modules)
}

func (api *studyCourseApi) query(ctx echo.Context) error {
	courses, err := api.svc.StudyCourses(ctx.Request().Context(), ctx.QueryParam("academic_degree"))
	if err != nil {
		return errors.Wrap(err, "querying study courses")
	}
	if courses == nil {
		courses = []project.StudyCourse{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *studyCourseApi) modules(ctx echo.Context) error {
	modules, err := api.svc.StudyCourseModules(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing study course modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}
