package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) GetResourceUnits(ctx context.Context, resourceID string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var unitIDs []string
	for unitID, resourceIDs := range repo.db.unitResources {
		if resourceIDs[resourceID] {
			unitIDs = append(unitIDs, unitID)
		}
	}
	sort.Strings(unitIDs)
	return unitIDs, nil
}

func (repo *courseRepository) GetUnitResources(ctx context.Context, unitID string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	resourceIDs := make([]string, 0, len(repo.db.unitResources[unitID]))
	for id := range repo.db.unitResources[unitID] {
		resourceIDs = append(resourceIDs, id)
	}
	sort.Strings(resourceIDs)
	return resourceIDs, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.courses {
		if c.Code == crs.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CreateContentUnit(ctx context.Context, unit course.ContentUnit, exec ...core.DBExecutor) (course.ContentUnit, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	unit.ID = uuid.New().String()
	repo.db.units[unit.ID] = &unit
	return unit, nil
}

func (repo *courseRepository) QueryContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.ContentUnit, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var units []course.ContentUnit
	for _, u := range repo.db.units {
		if u.CourseID == courseID {
			units = append(units, *u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].CreatedAt.Before(units[j].CreatedAt) })
	return units, nil
}

func (repo *courseRepository) GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (course.ContentUnit, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if u, ok := repo.db.units[id]; ok {
		return *u, nil
	}
	return course.ContentUnit{}, course.ErrUnitNotFound
}

func (repo *courseRepository) CreateResource(ctx context.Context, res course.Resource, exec ...core.DBExecutor) (course.Resource, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	res.ID = uuid.New().String()
	repo.db.resources[res.ID] = &res
	return res, nil
}

func (repo *courseRepository) GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (course.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.resources[id]; ok {
		return *r, nil
	}
	return course.Resource{}, course.ErrNotFound
}

func (repo *courseRepository) AttachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.unitResources[unitID] == nil {
		repo.db.unitResources[unitID] = make(map[string]bool)
	}
	repo.db.unitResources[unitID][resourceID] = true
	return nil
}

func (repo *courseRepository) DetachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.unitResources[unitID], resourceID)
	return nil
}
