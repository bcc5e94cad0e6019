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
	"github.com/trezcool/masomo/core/completion"
)

type completionRepository struct {
	db *sqlx.DB
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db *sqlx.DB) *completionRepository {
	return &completionRepository{db: db}
}

func (repo completionRepository) ext(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

type recordRow struct {
	ResourceID  string    `db:"resource_id"`
	UserID      string    `db:"user_id"`
	WorkedOn    bool      `db:"worked_on"`
	CompletedAt null.Time `db:"completed_at"`
}

func (r recordRow) toRecord() completion.Record {
	return completion.Record{
		ResourceID:  r.ResourceID,
		UserID:      r.UserID,
		WorkedOn:    r.WorkedOn,
		CompletedAt: r.CompletedAt,
	}
}

const recordColumns = `resource_id, user_id, worked_on, completed_at`

func (repo completionRepository) GetRecord(ctx context.Context, resourceID, userID string, exec ...core.DBExecutor) (completion.Record, error) {
	var row recordRow
	query := `SELECT ` + recordColumns + ` FROM completion_record WHERE resource_id = $1 AND user_id = $2`
	if err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, resourceID, userID); err != nil {
		if err == sql.ErrNoRows {
			return completion.Record{}, completion.ErrNotFound
		}
		return completion.Record{}, errors.Wrap(err, "finding completion record")
	}
	return row.toRecord(), nil
}

func (repo completionRepository) CreateRecord(ctx context.Context, rec completion.Record, exec ...core.DBExecutor) (completion.Record, error) {
	// a concurrent creator wins silently; return whatever is stored
	var row recordRow
	query := `
		INSERT INTO completion_record (` + recordColumns + `)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource_id, user_id) DO UPDATE SET resource_id = completion_record.resource_id
		RETURNING ` + recordColumns
	err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, rec.ResourceID, rec.UserID, rec.WorkedOn, rec.CompletedAt)
	if err != nil {
		return completion.Record{}, errors.Wrap(err, "inserting completion record")
	}
	return row.toRecord(), nil
}

// MarkWorkedOn sets worked_on and stamps completed_at as a single statement;
// the WHERE guard makes the transition observable exactly once.
func (repo completionRepository) MarkWorkedOn(ctx context.Context, resourceID, userID string, completedAt time.Time, exec ...core.DBExecutor) (completion.Record, bool, error) {
	e := repo.ext(exec)

	var row recordRow
	query := `
		INSERT INTO completion_record (resource_id, user_id, worked_on, completed_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (resource_id, user_id) DO UPDATE SET worked_on = TRUE, completed_at = $3
		WHERE completion_record.worked_on = FALSE
		RETURNING ` + recordColumns
	err := sqlx.GetContext(ctx, e, &row, query, resourceID, userID, completedAt.UTC())
	if err == nil {
		return row.toRecord(), true, nil
	}
	if err != sql.ErrNoRows {
		return completion.Record{}, false, errors.Wrap(err, "marking resource worked-on")
	}

	// no transition: the record was already worked-on
	rec, err := repo.GetRecord(ctx, resourceID, userID, exec...)
	if err != nil {
		return completion.Record{}, false, err
	}
	return rec, false, nil
}

func (repo completionRepository) QueryUserRecords(ctx context.Context, userID string, resourceIDs []string, exec ...core.DBExecutor) (map[string]completion.Record, error) {
	var rows []recordRow
	query := `SELECT ` + recordColumns + ` FROM completion_record WHERE user_id = $1 AND resource_id = ANY($2)`
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, userID, pq.Array(resourceIDs)); err != nil {
		return nil, errors.Wrap(err, "querying completion records")
	}
	recs := make(map[string]completion.Record, len(rows))
	for _, r := range rows {
		recs[r.ResourceID] = r.toRecord()
	}
	return recs, nil
}
