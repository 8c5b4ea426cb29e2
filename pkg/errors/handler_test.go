package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathError struct{ path []string }

func (e *pathError) Error() string   { return "cycle" }
func (e *pathError) StatusCode() int { return http.StatusUnprocessableEntity }
func (e *pathError) Details() map[string]interface{} {
	return map[string]interface{}{"cycle": e.path}
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
		wantDetails bool
	}{
		{"unauthorized", false, &UnauthorizedError{Operation: "add_node", Required: "WRITE"}, http.StatusForbidden, "UNAUTHORIZED", "unauthorized: add_node requires WRITE", false},
		{"wrapped tree missing", false, fmt.Errorf("load: %w", &TreeNotFoundError{TreeID: "t1"}), http.StatusNotFound, "NOT_FOUND", `load: tree "t1" not found`, false},
		{"name", false, &TreeNameInvalidError{Name: " "}, http.StatusBadRequest, "VALIDATION", `tree name " " is invalid: must not be blank`, false},
		{"cycle with path", false, &pathError{path: []string{"A", "B", "A"}}, http.StatusUnprocessableEntity, "INVARIANT", "cycle", true},
		{"conflict", false, NewConflictError("stale"), http.StatusConflict, "CONFLICT", "stale", false},
		{"database hidden", false, NewDatabaseError("save", fmt.Errorf("timeout")), http.StatusInternalServerError, "DATABASE", "An internal error occurred", false},
		{"plain hidden", false, fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL", "An internal error occurred", false},
		{"plain in debug", true, fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL", "boom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(nil, tt.debug)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/trees/t1", nil)
			req.Header.Set("X-Request-ID", "req-1")
			rec := httptest.NewRecorder()

			h.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, "req-1", body.RequestID)
			if tt.wantDetails {
				assert.Equal(t, []interface{}{"A", "B", "A"}, body.Details["cycle"])
			} else {
				assert.Empty(t, body.Details)
			}
		})
	}
}

func TestErrorHandler_Middleware(t *testing.T) {
	h := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()

	h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("bad")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
