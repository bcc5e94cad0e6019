package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/course"
)

type courseApi struct {
	svc      course.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/units", api.queryUnits)

	ug := g.Group("/content-units", jwt)
	ug.POST("", api.createUnit, adminMiddleware())
	ug.PUT("/:id/resources/:resourceID", api.attachResource, adminMiddleware())
	ug.DELETE("/:id/resources/:resourceID", api.detachResource, adminMiddleware())

	rg := g.Group("/resources", jwt)
	rg.POST("", api.createResource, adminMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) queryUnits(ctx echo.Context) error {
	units, err := api.svc.QueryContentUnits(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying content units")
	}
	if units == nil {
		units = []course.ContentUnit{}
	}
	return ctx.JSON(http.StatusOK, units)
}

func (api *courseApi) createUnit(ctx echo.Context) error {
	var data course.NewContentUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContentUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	unit, err := api.svc.CreateContentUnit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating content unit")
	}
	return ctx.JSON(http.StatusCreated, unit)
}

func (api *courseApi) createResource(ctx echo.Context) error {
	var data course.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.CreateResource(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *courseApi) attachResource(ctx echo.Context) error {
	err := api.svc.AttachResource(ctx.Request().Context(), ctx.Param("id"), ctx.Param("resourceID"))
	if err != nil {
		return errors.Wrap(err, "attaching resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) detachResource(ctx echo.Context) error {
	err := api.svc.DetachResource(ctx.Request().Context(), ctx.Param("id"), ctx.Param("resourceID"))
	if err != nil {
		return errors.Wrap(err, "detaching resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}
