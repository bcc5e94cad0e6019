package completion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("completion record not found")
)

type (
	Repository interface {
		// GetRecord returns the record for (resourceID, userID) or ErrNotFound.
		GetRecord(ctx context.Context, resourceID, userID string, exec ...core.DBExecutor) (Record, error)
		// CreateRecord persists a fresh record; when a concurrent caller got
		// there first, the existing record is returned instead.
		CreateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		// MarkWorkedOn performs the 0->1 transition as one atomic
		// read-modify-write, creating the record if needed. It reports
		// whether this call made the transition; an already worked-on record
		// is returned unchanged.
		MarkWorkedOn(ctx context.Context, resourceID, userID string, completedAt time.Time, exec ...core.DBExecutor) (Record, bool, error)
		// QueryUserRecords returns all of a user's records for the given
		// resources, keyed by resource ID. Missing records are absent.
		QueryUserRecords(ctx context.Context, userID string, resourceIDs []string, exec ...core.DBExecutor) (map[string]Record, error)
	}

	ServiceInterface interface {
		GetOrCreate(ctx context.Context, resourceID, userID string) (Record, error)
		MarkWorkedOn(ctx context.Context, resourceID, userID string) (Record, bool, error)
		ResourceWorkedOn(ctx context.Context, resourceID, userID string) (Record, error)
	}

	service struct {
		repo   Repository
		units  course.MembershipLookup
		bus    core.EventBus
		logger core.Logger
		locks  *core.KeyedMutex
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, units course.MembershipLookup, bus core.EventBus, logger core.Logger) ServiceInterface {
	return &service{
		repo:   repo,
		units:  units,
		bus:    bus,
		logger: logger,
		locks:  core.NewKeyedMutex(),
	}
}

// GetOrCreate returns the record for (resourceID, userID), lazily creating
// it with WorkedOn=false. Unknown IDs are never an error.
func (svc *service) GetOrCreate(ctx context.Context, resourceID, userID string) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, resourceID, userID)
	if err == nil {
		return rec, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Record{}, err
	}
	return svc.repo.CreateRecord(ctx, Record{ResourceID: resourceID, UserID: userID})
}

// MarkWorkedOn idempotently flags the resource as worked-on for the user.
// Only the first call transitions the record and stamps CompletedAt;
// repeat calls leave it untouched and report transitioned=false.
func (svc *service) MarkWorkedOn(ctx context.Context, resourceID, userID string) (Record, bool, error) {
	return svc.repo.MarkWorkedOn(ctx, resourceID, userID, nowFunc().UTC())
}

// ResourceWorkedOn marks the resource worked-on and, on a genuine 0->1
// transition, emits a unit-completion Event for every containing content
// unit whose resources are now all worked-on by the user.
//
// The mark, the sibling check and the emission decision all run inside
// per-(user, unit) critical sections so sibling transitions are totally
// ordered per unit: exactly one of them observes the full set and emits.
// Keys are acquired in sorted order; multi-unit resources cannot deadlock.
func (svc *service) ResourceWorkedOn(ctx context.Context, resourceID, userID string) (Record, error) {
	unitIDs, err := svc.units.GetResourceUnits(ctx, resourceID)
	if err != nil {
		return Record{}, errors.Wrap(err, "looking up unit membership")
	}
	sort.Strings(unitIDs)

	keys := make([]string, 0, len(unitIDs))
	for _, unitID := range unitIDs {
		keys = append(keys, lockKey(userID, unitID))
	}
	for _, key := range keys {
		svc.locks.Lock(key)
	}
	defer func() {
		for i := len(keys) - 1; i >= 0; i-- {
			svc.locks.Unlock(keys[i])
		}
	}()

	rec, transitioned, err := svc.MarkWorkedOn(ctx, resourceID, userID)
	if err != nil {
		return Record{}, errors.Wrap(err, "marking resource worked-on")
	}
	if !transitioned {
		return rec, nil
	}

	for _, unitID := range unitIDs {
		done, err := svc.unitCompleted(ctx, unitID, userID)
		if err != nil {
			// the record write is already durable; surface the read failure
			return rec, errors.Wrapf(err, "checking completion of unit %s", unitID)
		}
		if done {
			svc.emit(ctx, userID, unitID, rec.CompletedAt.Time)
		}
	}
	return rec, nil
}

// unitCompleted reports whether the user has worked on every member
// resource of the unit. Missing sibling records are created on the fly.
func (svc *service) unitCompleted(ctx context.Context, unitID, userID string) (bool, error) {
	resourceIDs, err := svc.units.GetUnitResources(ctx, unitID)
	if err != nil {
		return false, errors.Wrap(err, "fetching unit resources")
	}
	for _, resourceID := range resourceIDs {
		rec, err := svc.GetOrCreate(ctx, resourceID, userID)
		if err != nil {
			return false, err
		}
		if !rec.WorkedOn {
			return false, nil
		}
	}
	return true, nil
}

// emit publishes the unit-completion event. The completion state is already
// durable; a failed publish is logged and left for external reconciliation,
// never rolled back.
func (svc *service) emit(ctx context.Context, userID, unitID string, completedAt time.Time) {
	evt := core.Event{
		Topic:      core.EventTopicUnitCompleted,
		OccurredAt: nowFunc().UTC(),
		Payload: Event{
			UserID:        userID,
			ContentUnitID: unitID,
			CompletedAt:   completedAt,
		},
	}
	if err := svc.bus.Publish(ctx, evt); err != nil {
		svc.logger.Error(
			fmt.Sprintf("completion recorded but event publish failed (user=%s unit=%s): %v", userID, unitID, err),
			errors.Wrap(err, "publishing unit-completion event"),
		)
	}
}

func lockKey(userID, unitID string) string {
	return userID + "\x00" + unitID
}
