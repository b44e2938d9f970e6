package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, ServiceID: "svc", PublicKey: "pub"})
	err := c.Send(context.Background(), "tmpl", map[string]interface{}{"quote_id": "EMB0301-1"})
	require.NoError(t, err)

	assert.Equal(t, "svc", got.ServiceID)
	assert.Equal(t, "tmpl", got.TemplateID)
	assert.Equal(t, "pub", got.UserID)
	assert.Equal(t, "EMB0301-1", got.TemplateParams["quote_id"])
}

func TestClient_SendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad template", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, ServiceID: "svc", PublicKey: "pub"})
	err := c.Send(context.Background(), "tmpl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad template")

	disabled := NewClient(Options{BaseURL: srv.URL})
	assert.False(t, disabled.Enabled())
	assert.ErrorIs(t, disabled.Send(context.Background(), "tmpl", nil), ErrDisabled)
}

func TestDirectory_Resolve(t *testing.T) {
	d := NewDirectory(DefaultStaff, "sales@example.com")

	assert.Equal(t, "Print Desk", d.Resolve("PRINT@example.com").Name)
	assert.Equal(t, "sales@example.com", d.Resolve("nobody@example.com").Email)
	assert.Len(t, d.Members(), len(DefaultStaff))

	custom := NewDirectory(nil, "orders@shop.test")
	assert.Equal(t, "orders@shop.test", custom.Resolve("").Email)
}
