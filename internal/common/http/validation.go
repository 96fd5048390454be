package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks `validate` tags on a request DTO.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// WriteValidationError reports which fields failed without echoing the
// submitted values back.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := TraceIDFromContext(r.Context())

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		details := make(map[string]any, len(vErrs))
		for _, fe := range vErrs {
			details[fe.Field()] = fe.Tag()
		}
		WriteErrorEnvelope(w, http.StatusBadRequest, CodeValidationFailed, "validation failed", details, traceID)
		return
	}

	WriteErrorEnvelope(w, http.StatusBadRequest, CodeBadRequest, "invalid request", nil, traceID)
}
