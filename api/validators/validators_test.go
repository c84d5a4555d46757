package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
)

type sampleBody struct {
	Name   string `json:"name" validate:"required,max=8"`
	Budget string `json:"budget" validate:"decimal"`
	Kind   string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","budget":"1.50"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "ok", body.Name)
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"budget":"-1","kind":"c"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be a non-negative decimal", details["budget"])
	assert.Equal(t, "must be one of a b", details["kind"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	var body sampleBody
	assert.True(t, pkgerrors.Is(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&purge=true&bad=x", nil)

	limit, err := ParseQueryInt(req, "limit", 10, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 7, limit)

	def, err := ParseQueryInt(req, "missing", 10, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 10, def)

	_, err = ParseQueryInt(req, "bad", 10, 1, 50)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	purge, err := ParseQueryBool(req, "purge")
	require.NoError(t, err)
	assert.True(t, purge)

	_, err = ParseQueryBool(req, "bad")
	assert.Error(t, err)
}
