package forum

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound     = errors.New("forum not found")
	ErrPostNotFound = errors.New("post not found")
)

type (
	// Repository is the forum store. Threads and posts are created by forum
	// mutations external to this core; this side only reads them and applies
	// vote toggles.
	Repository interface {
		// GetForum returns the forum fully populated with its threads and
		// posts, or ErrNotFound.
		GetForum(ctx context.Context, id string, exec ...core.DBExecutor) (Forum, error)
		// QueryForumsByUser returns the fully populated forums of every
		// course the user is enrolled in.
		QueryForumsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Forum, error)
		// VotePost applies Post.ApplyVote as one atomic read-modify-write
		// and returns the updated post, or ErrPostNotFound.
		VotePost(ctx context.Context, postID, userID string, dir VoteDirection, exec ...core.DBExecutor) (Post, error)
	}

	ServiceInterface interface {
		OpenQuestions(ctx context.Context, forumID string) ([]Thread, error)
		ForumActivity(ctx context.Context, forumID string) ([]ActivityEntry, error)
		ForumActivityByUser(ctx context.Context, userID string) ([]ActivityEntry, error)
		UpvotePost(ctx context.Context, postID, userID string) (Post, error)
		DownvotePost(ctx context.Context, postID, userID string) (Post, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

// OpenQuestions returns the forum's unanswered question threads ordered by
// priority score, at most 4. Point-in-time snapshot; no lock against
// in-flight writes.
func (svc *service) OpenQuestions(ctx context.Context, forumID string) ([]Thread, error) {
	f, err := svc.repo.GetForum(ctx, forumID)
	if err != nil {
		return nil, err
	}
	return rankOpenQuestions(f.Threads, nowFunc().UTC()), nil
}

// ForumActivity returns the forum's latest thread/post creations, newest
// first, at most 4.
func (svc *service) ForumActivity(ctx context.Context, forumID string) ([]ActivityEntry, error) {
	f, err := svc.repo.GetForum(ctx, forumID)
	if err != nil {
		return nil, err
	}
	return sortActivity(buildActivity(f), activityLimit), nil
}

// ForumActivityByUser returns every thread/post creation authored by the
// user across the forums they belong to, tagged with the owning course,
// newest first. Unlike ForumActivity this view is not capped; the frontend
// renders the full history.
func (svc *service) ForumActivityByUser(ctx context.Context, userID string) ([]ActivityEntry, error) {
	forums, err := svc.repo.QueryForumsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]ActivityEntry, 0)
	for _, f := range forums {
		for _, e := range buildActivity(f) {
			if e.Post != nil {
				if e.Post.Author == userID {
					entries = append(entries, e)
				}
			} else if e.Thread.CreatedBy == userID {
				entries = append(entries, e)
			}
		}
	}
	return sortActivity(entries, 0 /* unbounded */), nil
}

func (svc *service) UpvotePost(ctx context.Context, postID, userID string) (Post, error) {
	return svc.repo.VotePost(ctx, postID, userID, VoteUp)
}

func (svc *service) DownvotePost(ctx context.Context, postID, userID string) (Post, error) {
	return svc.repo.VotePost(ctx, postID, userID, VoteDown)
}
