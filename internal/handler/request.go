package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"decostore-rest-api/internal/proxy"
	"decostore-rest-api/pkg/apierror"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierror.BadRequest("request body too large")
		}
		return apierror.BadRequest("invalid JSON")
	}
	return nil
}

// validationError turns validator output into a 400 with field details.
func validationError(message string, err error) *apierror.Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apierror.ValidationError(message + ": " + err.Error())
	}
	details := make([]apierror.FieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, apierror.FieldError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		})
	}
	return apierror.ValidationError(message, details...)
}

// upstreamError maps a proxy failure to an API error.
func upstreamError(err error) *apierror.Error {
	if proxy.IsNotFound(err) {
		return apierror.NotFound("")
	}
	return apierror.ServiceUnavailable(proxy.UserMessage(err))
}
