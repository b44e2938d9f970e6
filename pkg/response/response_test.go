package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"decostore-rest-api/pkg/apierror"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{
			name: "api error",
			err:  apierror.NotFound("Item not found in cart"),
			code: http.StatusNotFound,
			body: `{"success":false,"error":{"code":"NOT_FOUND","message":"Item not found in cart"}}`,
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("loading cart: %w", apierror.ServiceUnavailable("")),
			code: http.StatusServiceUnavailable,
			body: `{"success":false,"error":{"code":"SERVICE_UNAVAILABLE","message":"Service temporarily unavailable"}}`,
		},
		{
			name: "validation details",
			err:  apierror.ValidationError("Invalid quote request", apierror.FieldError{Field: "products", Message: "required"}),
			code: http.StatusBadRequest,
			body: `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"Invalid quote request","details":[{"field":"products","message":"required"}]}}`,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			code: http.StatusInternalServerError,
			body: `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"EMB0307-1"}, 2, 20, 21)
	assert.JSONEq(t, `{"success":true,"data":["EMB0307-1"],"meta":{"page":2,"limit":20,"total":21}}`, rec.Body.String())
}
