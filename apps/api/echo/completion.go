package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/completion"
)

type completionApi struct {
	svc completion.ServiceInterface
}

func registerCompletionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc completion.ServiceInterface) {
	api := completionApi{svc: svc}

	cg := g.Group("/completions", jwt)
	cg.GET("/resources/:id", api.retrieve)
	cg.POST("/resources/:id", api.resourceWorkedOn)
}

// Handlers

func (api *completionApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rec, err := api.svc.GetOrCreate(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting completion record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *completionApi) resourceWorkedOn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rec, err := api.svc.ResourceWorkedOn(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking resource worked-on")
	}
	return ctx.JSON(http.StatusOK, rec)
}
