package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{
			name:        "valid JSON",
			body:        `{"name": "test"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			body:        `{invalid}`,
			expectError: true,
		},
		{
			name:        "empty body",
			body:        ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSON_UnknownField(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"name":"a","nmae":"b"}`))

	err := ParseJSON(req, &dest)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nmae")
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{invalid}`))
	var dest map[string]string

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name        string
		vars        map[string]string
		want        int64
		expectError bool
	}{
		{name: "valid", vars: map[string]string{"id": "123"}, want: 123},
		{name: "missing", vars: map[string]string{}, expectError: true},
		{name: "not a number", vars: map[string]string{"id": "abc"}, expectError: true},
		{name: "zero", vars: map[string]string{"id": "0"}, expectError: true},
		{name: "negative", vars: map[string]string{"id": "-4"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/test", nil), tt.vars)

			got, err := ParsePathInt64(req, "id")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePathInt64OrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/test", nil), map[string]string{"id": "x"})

	_, ok := ParsePathInt64OrError(w, req, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test?order=topological&constraint=~1.2&bad=random", nil)

	assert.Equal(t, "~1.2", ParseQueryString(req, "constraint", ""))
	assert.Equal(t, "fallback", ParseQueryString(req, "missing", "fallback"))

	order, err := ParseQueryChoice(req, "order", "", "topological")
	assert.NoError(t, err)
	assert.Equal(t, "topological", order)

	def, err := ParseQueryChoice(req, "missing", "closure", "closure", "topological")
	assert.NoError(t, err)
	assert.Equal(t, "closure", def)

	_, err = ParseQueryChoice(req, "bad", "", "topological")
	assert.EqualError(t, err, `invalid value for query param bad: "random" (must be one of topological)`)
}
