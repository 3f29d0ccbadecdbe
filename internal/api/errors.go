package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/huangsam/envgap/core"
)

// FieldError describes one request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrResponse is the JSON error body of every failed request.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string       `json:"status"`
	ErrorText  string       `json:"error,omitempty"`
	Fields     []FieldError `json:"fields,omitempty"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errInvalidRequest(err error) *ErrResponse {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		ErrorText:      err.Error(),
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.ErrorText = "request failed validation"
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, FieldError{Field: fe.Namespace(), Message: validationMessage(fe)})
		}
	}
	return resp
}

func errUnprocessable(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Invalid index configuration",
		ErrorText:      err.Error(),
	}
}

// errPipeline maps pipeline errors to a response. Configuration errors are
// the caller's fault; anything else is ours.
func errPipeline(err error) *ErrResponse {
	switch {
	case errors.Is(err, core.ErrNoMeasures), errors.Is(err, core.ErrNoActiveMeasures), errors.Is(err, core.ErrUnknownMeasure):
		return errUnprocessable(err)
	default:
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusInternalServerError,
			StatusText:     "Internal server error",
			ErrorText:      err.Error(),
		}
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	case "metric":
		return "must be a known metric"
	default:
		return "failed on " + fe.Tag()
	}
}
