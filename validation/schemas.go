// Package validation schema-checks inbound request payloads before they reach
// quota evaluation or persistence. Checks are exhaustive: every violated field
// is reported in one pass, never just the first.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the wire (json) field names, not Go names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError is one per-field violation in a failed validation response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks a schema struct and returns all violations, or nil when the
// payload is valid.
func Validate(v interface{}) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// PresignRequest is the payload for requesting a presigned upload URL.
// The principal comes from the authenticated session, never from the body.
type PresignRequest struct {
	Filename        string `json:"filename" validate:"required,min=1,max=255"`
	SizeBytes       int64  `json:"size_bytes" validate:"required,gt=0"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	IsPublic        bool   `json:"is_public"`
}

// TrackCreate is the upload-confirmation payload that persists track metadata
// referencing a previously presigned object key.
type TrackCreate struct {
	Title           string   `json:"title" validate:"required,min=1,max=200"`
	Description     string   `json:"description" validate:"max=1000"`
	Visibility      string   `json:"visibility" validate:"omitempty,oneof=public private"`
	Tags            []string `json:"tags" validate:"max=16,dive,min=1,max=32"`
	ObjectKey       string   `json:"object_key" validate:"required,max=1024"`
	SizeBytes       int64    `json:"size_bytes" validate:"required,gt=0"`
	DurationSeconds int      `json:"duration_seconds" validate:"gte=0"`
}

// ApplyDefaults fills optional fields after a successful validation pass.
func (t *TrackCreate) ApplyDefaults() {
	if t.Visibility == "" {
		t.Visibility = "public"
	}
}

// TrackUpdate edits track metadata; the object key is immutable once confirmed.
type TrackUpdate struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=1000"`
	Visibility  string   `json:"visibility" validate:"omitempty,oneof=public private"`
	Tags        []string `json:"tags" validate:"max=16,dive,min=1,max=32"`
}

// CommentCreate is the payload for commenting on a track.
type CommentCreate struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
