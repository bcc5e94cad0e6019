package course

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var (
	// errors
	ErrNotFound     = errors.New("course not found")
	ErrUnitNotFound = errors.New("content unit not found")
	ErrCodeExists   = errors.New("a course with this code already exists")
)

type (
	// MembershipLookup resolves the many-to-many content-unit <-> resource
	// relation. It is the only view of course content the completion
	// aggregator consumes.
	MembershipLookup interface {
		// GetResourceUnits returns the IDs of every content unit the
		// resource belongs to (usually one).
		GetResourceUnits(ctx context.Context, resourceID string, exec ...core.DBExecutor) ([]string, error)
		// GetUnitResources returns the IDs of every member resource of the
		// content unit.
		GetUnitResources(ctx context.Context, unitID string, exec ...core.DBExecutor) ([]string, error)
	}

	Repository interface {
		MembershipLookup

		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		CreateContentUnit(ctx context.Context, unit ContentUnit, exec ...core.DBExecutor) (ContentUnit, error)
		QueryContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]ContentUnit, error)
		GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (ContentUnit, error)
		CreateResource(ctx context.Context, res Resource, exec ...core.DBExecutor) (Resource, error)
		GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (Resource, error)
		AttachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error
		DetachResource(ctx context.Context, unitID, resourceID string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		CreateContentUnit(ctx context.Context, nu NewContentUnit) (ContentUnit, error)
		QueryContentUnits(ctx context.Context, courseID string) ([]ContentUnit, error)
		CreateResource(ctx context.Context, nr NewResource) (Resource, error)
		AttachResource(ctx context.Context, unitID, resourceID string) error
		DetachResource(ctx context.Context, unitID, resourceID string) error
		HandleMembershipChange(ctx context.Context, msg ChangeMessage) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, logger core.Logger) ServiceInterface {
	return &service{
		repo:   repo,
		logger: logger,
	}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Name:      nc.Name,
		Code:      nc.Code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if errors.Cause(err) == ErrCodeExists {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return crs, err
}

func (svc *service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) CreateContentUnit(ctx context.Context, nu NewContentUnit) (ContentUnit, error) {
	if _, err := svc.repo.GetCourse(ctx, nu.CourseID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ContentUnit{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return ContentUnit{}, err
	}

	now := time.Now().UTC()
	unit := ContentUnit{
		CourseID:  nu.CourseID,
		Title:     nu.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateContentUnit(ctx, unit)
}

func (svc *service) QueryContentUnits(ctx context.Context, courseID string) ([]ContentUnit, error) {
	return svc.repo.QueryContentUnits(ctx, courseID)
}

func (svc *service) CreateResource(ctx context.Context, nr NewResource) (Resource, error) {
	now := time.Now().UTC()
	res := Resource{
		Title:     nr.Title,
		Kind:      nr.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateResource(ctx, res)
}

func (svc *service) AttachResource(ctx context.Context, unitID, resourceID string) error {
	if _, err := svc.repo.GetContentUnit(ctx, unitID); err != nil {
		return err
	}
	if _, err := svc.repo.GetResource(ctx, resourceID); err != nil {
		return err
	}
	return svc.repo.AttachResource(ctx, unitID, resourceID)
}

func (svc *service) DetachResource(ctx context.Context, unitID, resourceID string) error {
	return svc.repo.DetachResource(ctx, unitID, resourceID)
}

// HandleMembershipChange applies a bulk "resource no longer in unit" update
// from the content-change feed. Malformed messages are rejected and dropped;
// the sender owns redelivery with a corrected payload. Completion records are
// left as-is: membership removal is out of band and never replays completion
// logic retroactively.
func (svc *service) HandleMembershipChange(ctx context.Context, msg ChangeMessage) error {
	if msg.ResourceID == "" || len(msg.ContentUnitIDs) == 0 {
		return errors.Wrap(core.ErrIncompleteMessage, "handling membership change")
	}
	for _, unitID := range msg.ContentUnitIDs {
		if unitID == "" {
			return errors.Wrap(core.ErrIncompleteMessage, "handling membership change")
		}
	}

	for _, unitID := range msg.ContentUnitIDs {
		if err := svc.repo.DetachResource(ctx, unitID, msg.ResourceID); err != nil {
			return errors.Wrapf(err, "detaching resource %s from unit %s", msg.ResourceID, unitID)
		}
	}
	return nil
}

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(resourceKindTag, resourceKindValidation)
	core.RegisterCustomTranslation(validate, translator, resourceKindTag, resourceKindText)
}

var (
	resourceKindTag  = "resourcekind"
	resourceKindText = "invalid resource kind"
)

// resourceKindValidation checks that the provided kind is a known ResourceKind.
func resourceKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range ResourceKinds {
		if kind == k {
			return true
		}
	}
	return false
}
