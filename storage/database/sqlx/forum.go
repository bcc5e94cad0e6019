package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/forum"
)

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo forumRepository) ext(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

type forumRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type threadRow struct {
	ID               string      `db:"id"`
	ForumID          string      `db:"forum_id"`
	CreatedBy        string      `db:"created_by"`
	CreatedAt        time.Time   `db:"created_at"`
	Kind             string      `db:"kind"`
	QuestionPostID   null.String `db:"question_post_id"`
	SelectedAnswerID null.String `db:"selected_answer_id"`
	InfoPostID       null.String `db:"info_post_id"`
}

type postRow struct {
	ID          string         `db:"id"`
	ThreadID    string         `db:"thread_id"`
	AuthorID    string         `db:"author_id"`
	Content     string         `db:"content"`
	CreatedAt   time.Time      `db:"created_at"`
	Edited      bool           `db:"edited"`
	UpvotedBy   pq.StringArray `db:"upvoted_by"`
	DownvotedBy pq.StringArray `db:"downvoted_by"`
}

func (r postRow) toPost() forum.Post {
	return forum.Post{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		Author:      r.AuthorID,
		Content:     r.Content,
		CreatedAt:   r.CreatedAt,
		Edited:      r.Edited,
		UpvotedBy:   r.UpvotedBy,
		DownvotedBy: r.DownvotedBy,
	}
}

const postColumns = `id, thread_id, author_id, content, created_at, edited, upvoted_by, downvoted_by`

func (repo forumRepository) GetForum(ctx context.Context, id string, exec ...core.DBExecutor) (forum.Forum, error) {
	e := repo.ext(exec)

	var row forumRow
	query := `SELECT id, course_id, name, created_at FROM forum WHERE id = $1`
	if err := sqlx.GetContext(ctx, e, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return forum.Forum{}, forum.ErrNotFound
		}
		return forum.Forum{}, errors.Wrap(err, "finding forum")
	}

	threads, err := repo.loadThreads(ctx, e, []string{row.ID})
	if err != nil {
		return forum.Forum{}, err
	}
	return forum.Forum{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		Threads:   threads[row.ID],
	}, nil
}

func (repo forumRepository) QueryForumsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]forum.Forum, error) {
	e := repo.ext(exec)

	var rows []forumRow
	query := `
		SELECT f.id, f.course_id, f.name, f.created_at
		FROM forum f
		JOIN course_enrollment ce ON ce.course_id = f.course_id
		WHERE ce.user_id = $1
		ORDER BY f.created_at`
	if err := sqlx.SelectContext(ctx, e, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying user forums")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	forumIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		forumIDs = append(forumIDs, r.ID)
	}
	threads, err := repo.loadThreads(ctx, e, forumIDs)
	if err != nil {
		return nil, err
	}

	forums := make([]forum.Forum, 0, len(rows))
	for _, r := range rows {
		forums = append(forums, forum.Forum{
			ID:        r.ID,
			CourseID:  r.CourseID,
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
			Threads:   threads[r.ID],
		})
	}
	return forums, nil
}

// loadThreads fetches the threads of the given forums with their posts,
// keyed by forum ID. Posts come back ordered by creation time.
func (repo forumRepository) loadThreads(ctx context.Context, e sqlx.ExtContext, forumIDs []string) (map[string][]forum.Thread, error) {
	var tRows []threadRow
	query := `
		SELECT id, forum_id, created_by, created_at, kind, question_post_id, selected_answer_id, info_post_id
		FROM thread WHERE forum_id = ANY($1) ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, e, &tRows, query, pq.Array(forumIDs)); err != nil {
		return nil, errors.Wrap(err, "querying threads")
	}
	if len(tRows) == 0 {
		return map[string][]forum.Thread{}, nil
	}

	threadIDs := make([]string, 0, len(tRows))
	for _, r := range tRows {
		threadIDs = append(threadIDs, r.ID)
	}
	var pRows []postRow
	query = `SELECT ` + postColumns + ` FROM post WHERE thread_id = ANY($1) ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, e, &pRows, query, pq.Array(threadIDs)); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}

	postsByThread := make(map[string][]forum.Post, len(tRows))
	postsByID := make(map[string]forum.Post, len(pRows))
	for _, r := range pRows {
		p := r.toPost()
		postsByThread[p.ThreadID] = append(postsByThread[p.ThreadID], p)
		postsByID[p.ID] = p
	}

	pin := func(id null.String) *forum.Post {
		if !id.Valid {
			return nil
		}
		if p, ok := postsByID[id.String]; ok {
			return &p
		}
		return nil
	}

	threads := make(map[string][]forum.Thread, len(forumIDs))
	for _, r := range tRows {
		posts := postsByThread[r.ID]
		threads[r.ForumID] = append(threads[r.ForumID], forum.Thread{
			ID:             r.ID,
			ForumID:        r.ForumID,
			CreatedBy:      r.CreatedBy,
			CreatedAt:      r.CreatedAt,
			Kind:           r.Kind,
			Posts:          posts,
			PostCount:      len(posts),
			Question:       pin(r.QuestionPostID),
			SelectedAnswer: pin(r.SelectedAnswerID),
			Info:           pin(r.InfoPostID),
		})
	}
	return threads, nil
}

// VotePost reads the post under a row lock, applies the vote toggle and
// writes both vote sets back in the same transaction.
func (repo forumRepository) VotePost(ctx context.Context, postID, userID string, dir forum.VoteDirection, _ ...core.DBExecutor) (forum.Post, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return forum.Post{}, errors.Wrap(err, "beginning vote transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row postRow
	query := `SELECT ` + postColumns + ` FROM post WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &row, query, postID); err != nil {
		if err == sql.ErrNoRows {
			return forum.Post{}, forum.ErrPostNotFound
		}
		return forum.Post{}, errors.Wrap(err, "finding post")
	}

	post := row.toPost()
	post.ApplyVote(userID, dir)

	query = `UPDATE post SET upvoted_by = $2, downvoted_by = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, postID, pq.Array(post.UpvotedBy), pq.Array(post.DownvotedBy)); err != nil {
		return forum.Post{}, errors.Wrap(err, "updating post votes")
	}
	if err = tx.Commit(); err != nil {
		return forum.Post{}, errors.Wrap(err, "committing vote transaction")
	}
	return post, nil
}
