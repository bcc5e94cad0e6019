package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

// Resource kinds
const (
	ResourceKindVideo    = "video"
	ResourceKindDocument = "document"
	ResourceKindSlides   = "slides"
	ResourceKindLink     = "link"
)

var ResourceKinds = []string{ResourceKindVideo, ResourceKindDocument, ResourceKindSlides, ResourceKindLink}

type (
	Course struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Code      string    `json:"code"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// ContentUnit is a logical instructional item of a Course. It may be
	// backed by one or more interchangeable resources (e.g. a lecture as a
	// video and a slide deck).
	ContentUnit struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// Resource is an individual uploaded/linked asset that learners can mark
	// worked-on. Upload/link issuance lives in the media service; only
	// metadata is kept here.
	Resource struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Kind      string    `json:"kind"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}
)

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,alphanum_"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	return validate.Struct(nc)
}

// NewContentUnit contains information needed to create a new ContentUnit.
type NewContentUnit struct {
	CourseID string `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
}

func (nu *NewContentUnit) Validate(validate *validator.Validate) error {
	nu.CourseID = core.CleanString(nu.CourseID)
	nu.Title = core.CleanString(nu.Title)
	return validate.Struct(nu)
}

// NewResource contains information needed to register a new Resource.
type NewResource struct {
	Title string `json:"title" validate:"required"`
	Kind  string `json:"kind" validate:"required,resourcekind"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	return validate.Struct(nr)
}

// ChangeMessage is a bulk membership-removal request from the companion
// content-change feed: the resource is no longer part of the given units.
type ChangeMessage struct {
	ResourceID     string   `json:"resource_id"`
	ContentUnitIDs []string `json:"content_unit_ids"`
}
