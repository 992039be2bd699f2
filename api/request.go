package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const defaultMaxBodyBytes = 1 << 20

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Shape checks only. Name, email, and password rules are enforced by the engine,
// which also classifies empty register fields.

type registerRequest struct {
	Name     string `json:"name" validate:"max=256"`
	Email    string `json:"email" validate:"max=320"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=256"`
}

type updateIdentityRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=256"`
	Email *string `json:"email" validate:"omitempty,max=320"`
}

var errEmptyBody = errors.New("request body is empty")

// decode reads at most limit bytes of JSON into dst and runs the struct tags.
func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errEmptyBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return validate.Struct(dst)
}

// requestErrorBody turns a decode or struct validation failure into a 400/413 body.
func requestErrorBody(err error) (int, ErrorBody) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorBody{Code: "BODY_TOO_LARGE", Message: "request body too large"}
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return http.StatusBadRequest, ErrorBody{Code: "INVALID_INPUT", Message: "request validation failed", Fields: fields}
	}

	return http.StatusBadRequest, ErrorBody{Code: "INVALID_INPUT", Message: "malformed request body"}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
