package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) ext(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

type courseRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{ID: r.ID, Name: r.Name, Code: r.Code, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type contentUnitRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r contentUnitRow) toUnit() course.ContentUnit {
	return course.ContentUnit{ID: r.ID, CourseID: r.CourseID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type resourceRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Kind      string    `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r resourceRow) toResource() course.Resource {
	return course.Resource{ID: r.ID, Title: r.Title, Kind: r.Kind, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (repo courseRepository) GetResourceUnits(ctx context.Context, resourceID string, exec ...core.DBExecutor) ([]string, error) {
	var unitIDs []string
	query := `SELECT unit_id FROM unit_resource WHERE resource_id = $1 ORDER BY unit_id`
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &unitIDs, query, resourceID); err != nil {
		return nil, errors.Wrap(err, "querying resource units")
	}
	return unitIDs, nil
}

func (repo courseRepository) GetUnitResources(ctx context.Context, unitID string, exec ...core.DBExecutor) ([]string, error) {
	var resourceIDs []string
	query := `SELECT resource_id FROM unit_resource WHERE unit_id = $1 ORDER BY resource_id`
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &resourceIDs, query, unitID); err != nil {
		return nil, errors.Wrap(err, "querying unit resources")
	}
	return resourceIDs, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	query := `INSERT INTO course (id, name, code, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.ext(exec).ExecContext(ctx, query, crs.ID, crs.Name, crs.Code, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC()); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	var rows []courseRow
	query := `SELECT id, name, code, created_at, updated_at FROM course ORDER BY name`
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	query := `SELECT id, name, code, created_at, updated_at FROM course WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) CreateContentUnit(ctx context.Context, unit course.ContentUnit, exec ...core.DBExecutor) (course.ContentUnit, error) {
	unit.ID = uuid.New().String()
	query := `INSERT INTO content_unit (id, course_id, title, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.ext(exec).ExecContext(ctx, query, unit.ID, unit.CourseID, unit.Title, unit.CreatedAt.UTC(), unit.UpdatedAt.UTC()); err != nil {
		return course.ContentUnit{}, errors.Wrap(err, "inserting content unit")
	}
	return unit, nil
}

func (repo courseRepository) QueryContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.ContentUnit, error) {
	var rows []contentUnitRow
	query := `SELECT id, course_id, title, created_at, updated_at FROM content_unit WHERE course_id = $1 ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying content units")
	}
	units := make([]course.ContentUnit, 0, len(rows))
	for _, r := range rows {
		units = append(units, r.toUnit())
	}
	return units, nil
}

func (repo courseRepository) GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (course.ContentUnit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.ContentUnit{}, course.ErrUnitNotFound
	}
	var row contentUnitRow
	query := `SELECT id, course_id, title, created_at, updated_at FROM content_unit WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.ContentUnit{}, course.ErrUnitNotFound
		}
		return course.ContentUnit{}, errors.Wrap(err, "finding content unit")
	}
	return row.toUnit(), nil
}

func (repo courseRepository) CreateResource(ctx context.Context, res course.Resource, exec ...core.DBExecutor) (course.Resource, error) {
	res.ID = uuid.New().String()
	query := `INSERT INTO resource (id, title, kind, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.ext(exec).ExecContext(ctx, query, res.ID, res.Title, res.Kind, res.CreatedAt.UTC(), res.UpdatedAt.UTC()); err != nil {
		return course.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo courseRepository) GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (course.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Resource{}, course.ErrNotFound
	}
	var row resourceRow
	query := `SELECT id, title, kind, created_at, updated_at FROM resource WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Resource{}, course.ErrNotFound
		}
		return course.Resource{}, errors.Wrap(err, "finding resource")
	}
	return row.toResource(), nil
}

func (repo courseRepository) AttachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error {
	query := `INSERT INTO unit_resource (unit_id, resource_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := repo.ext(exec).ExecContext(ctx, query, unitID, resourceID); err != nil {
		return errors.Wrap(err, "attaching resource")
	}
	return nil
}

func (repo courseRepository) DetachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error {
	query := `DELETE FROM unit_resource WHERE unit_id = $1 AND resource_id = $2`
	if _, err := repo.ext(exec).ExecContext(ctx, query, unitID, resourceID); err != nil {
		return errors.Wrap(err, "detaching resource")
	}
	return nil
}
