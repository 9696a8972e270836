package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/ddoksori/internal/api/middleware"
	"github.com/Rrens/ddoksori/internal/api/response"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decode reads a JSON body into v and validates it, writing the error
// response itself. It reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			response.BadRequest(w, fieldErrors(validationErrors))
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}

	return true
}

func fieldErrors(validationErrors validator.ValidationErrors) map[string]string {
	errs := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = "field is required"
		case "email":
			errs[field] = "invalid email format"
		case "url":
			errs[field] = "invalid url"
		case "oneof":
			errs[field] = "must be one of: " + e.Param()
		case "max":
			errs[field] = "must be at most " + e.Param() + " characters"
		default:
			errs[field] = "validation failed on " + e.Tag()
		}
	}
	return errs
}

func currentWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := middleware.GetWorkspace(r.Context())
	if !ok {
		response.InternalError(w, "missing client context")
		return nil, false
	}
	return ws, true
}
