package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/completion"
)

type completionRepository struct {
	db *DB
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db *DB) *completionRepository {
	return &completionRepository{db: db}
}

func recordKey(resourceID, userID string) string { return resourceID + "|" + userID }

func (repo *completionRepository) GetRecord(ctx context.Context, resourceID, userID string, exec ...core.DBExecutor) (completion.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.records[recordKey(resourceID, userID)]; ok {
		return *rec, nil
	}
	return completion.Record{}, completion.ErrNotFound
}

func (repo *completionRepository) CreateRecord(ctx context.Context, rec completion.Record, exec ...core.DBExecutor) (completion.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := recordKey(rec.ResourceID, rec.UserID)
	if existing, ok := repo.db.records[key]; ok {
		return *existing, nil
	}
	repo.db.records[key] = &rec
	return rec, nil
}

func (repo *completionRepository) MarkWorkedOn(ctx context.Context, resourceID, userID string, completedAt time.Time, exec ...core.DBExecutor) (completion.Record, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := recordKey(resourceID, userID)
	rec, ok := repo.db.records[key]
	if !ok {
		rec = &completion.Record{ResourceID: resourceID, UserID: userID}
		repo.db.records[key] = rec
	}
	if rec.WorkedOn {
		return *rec, false, nil
	}
	rec.WorkedOn = true
	rec.CompletedAt = null.TimeFrom(completedAt)
	return *rec, true, nil
}

func (repo *completionRepository) QueryUserRecords(ctx context.Context, userID string, resourceIDs []string, exec ...core.DBExecutor) (map[string]completion.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make(map[string]completion.Record)
	for _, resourceID := range resourceIDs {
		if rec, ok := repo.db.records[recordKey(resourceID, userID)]; ok {
			recs[resourceID] = *rec
		}
	}
	return recs, nil
}
