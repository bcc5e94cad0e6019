package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/forum"
)

type forumApi struct {
	svc forum.ServiceInterface
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc forum.ServiceInterface) {
	api := forumApi{svc: svc}

	fg := g.Group("/forums", jwt)
	fg.GET("/activity", api.userActivity)
	fg.GET("/:id/open-questions", api.openQuestions)
	fg.GET("/:id/activity", api.activity)

	pg := g.Group("/forums/posts", jwt)
	pg.POST("/:id/upvote", api.upvote)
	pg.POST("/:id/downvote", api.downvote)
}

// Handlers

func (api *forumApi) openQuestions(ctx echo.Context) error {
	threads, err := api.svc.OpenQuestions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "ranking open questions")
	}
	if threads == nil {
		threads = []forum.Thread{}
	}
	return ctx.JSON(http.StatusOK, threads)
}

func (api *forumApi) activity(ctx echo.Context) error {
	entries, err := api.svc.ForumActivity(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching forum activity")
	}
	if entries == nil {
		entries = []forum.ActivityEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// userActivity returns the full activity history of the authenticated user
// across the forums of their enrolled courses.
func (api *forumApi) userActivity(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entries, err := api.svc.ForumActivityByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "fetching user forum activity")
	}
	if entries == nil {
		entries = []forum.ActivityEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *forumApi) upvote(ctx echo.Context) error {
	return api.vote(ctx, forum.VoteUp)
}

func (api *forumApi) downvote(ctx echo.Context) error {
	return api.vote(ctx, forum.VoteDown)
}

func (api *forumApi) vote(ctx echo.Context, dir forum.VoteDirection) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var post forum.Post
	if dir == forum.VoteUp {
		post, err = api.svc.UpvotePost(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	} else {
		post, err = api.svc.DownvotePost(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	}
	if err != nil {
		return errors.Wrap(err, "voting on post")
	}
	return ctx.JSON(http.StatusOK, post)
}
