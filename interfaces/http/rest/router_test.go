package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	commandbus "github.com/jgchk/romulus-sub005/application/commands/bus"
	commandhandlers "github.com/jgchk/romulus-sub005/application/commands/handlers"
	"github.com/jgchk/romulus-sub005/application/queries"
	querybus "github.com/jgchk/romulus-sub005/application/queries/bus"
	queryhandlers "github.com/jgchk/romulus-sub005/application/queries/handlers"
	"github.com/jgchk/romulus-sub005/domain/services"
	"github.com/jgchk/romulus-sub005/infrastructure/config"
	"github.com/jgchk/romulus-sub005/infrastructure/persistence/memory"
	"github.com/jgchk/romulus-sub005/pkg/auth"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

type apiFixture struct {
	server    *httptest.Server
	generator *auth.JWTGenerator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	trees := memory.NewInMemoryTreeRepository(nil)
	eventStore := memory.NewInMemoryEventStore()
	mergeRequests := memory.NewInMemoryMergeRequestRepository()
	history := memory.NewInMemoryHistoryRepository()
	gate := services.NewRoleGate()

	commandBus := commandbus.NewCommandBus()
	require.NoError(t, commandhandlers.NewTreeCommandHandler(
		trees, eventStore, mergeRequests, history, memory.NewInMemoryEventBus(), gate, nil, nil, logger,
	).Register(commandBus))

	queryBus := querybus.NewQueryBus(logger)
	require.NoError(t, queryhandlers.NewTreeQueryHandler(
		trees, eventStore, history, mergeRequests, gate, nil, logger,
	).Register(queryBus))

	jwtConfig := auth.JWTConfig{SecretKey: "secret", Issuer: "romulus"}
	validator, err := auth.NewJWTValidator(jwtConfig)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(jwtConfig, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{HistoryLimit: 50, EnableCORS: true, AllowedOrigin: "*"}
	router := NewRouter(commandBus, queryBus, validator, pkgerrors.NewErrorHandler(logger, false), cfg, logger)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return &apiFixture{server: server, generator: generator}
}

func (f *apiFixture) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	token, err := f.generator.GenerateToken(userID, "", roles)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/trees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees", f.token(t, "5", "READ"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTreeLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	writer := f.token(t, "5", "WRITE")

	resp := f.do(t, http.MethodPost, "/api/v1/trees", writer, map[string]string{"id": "genres", "name": "Genres", "kind": "genre"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created queries.TreeView
	decode(t, resp, &created)
	assert.Equal(t, "genres", created.ID)
	assert.Equal(t, "5", created.OwnerID)
	assert.Empty(t, created.Nodes)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/genres/nodes", writer, map[string]interface{}{"id": "rock", "name": "Rock"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/v1/trees/genres/nodes", writer, map[string]interface{}{"id": "punk", "name": "Punk", "parents": []string{"rock"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/genres/nodes/rock/children", writer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var children queries.ChildrenView
	decode(t, resp, &children)
	assert.Equal(t, []string{"punk"}, children.Children)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/genres/nodes/rock/parents", writer, map[string]string{"parent_id": "punk"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var cycle pkgerrors.ErrorResponse
	decode(t, resp, &cycle)
	assert.Contains(t, cycle.Details, "cycle")

	resp = f.do(t, http.MethodPut, "/api/v1/trees/genres/nodes/punk", writer, map[string]interface{}{"name": "Punk Rock"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, "/api/v1/trees/genres", writer, map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/trees/genres/nodes/rock", writer, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/genres", writer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tree queries.TreeView
	decode(t, resp, &tree)
	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, "Punk Rock", tree.Nodes[0].Name)
	assert.Empty(t, tree.Nodes[0].Parents)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/genres/history?limit=2", writer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []queries.HistoryView
	decode(t, resp, &history)
	assert.Len(t, history, 2)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/genres/history?limit=x", writer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/genres/replay", writer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report queries.ReplayReport
	decode(t, resp, &report)
	assert.True(t, report.Consistent)
}

func TestRoleGateOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.token(t, "5", "WRITE")
	reader := f.token(t, "6", "READ")
	admin := f.token(t, "7", "ADMIN")

	resp := f.do(t, http.MethodPost, "/api/v1/trees", owner, map[string]string{"id": "t1", "name": "T1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/t1/nodes", reader, map[string]interface{}{"id": "A", "name": "A"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/v1/trees/t1/main", owner, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/v1/trees/t1/main", admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/t1/nodes", owner, map[string]interface{}{"id": "A", "name": "A"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/missing", reader, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees", owner, map[string]string{"id": "t1", "name": "Again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCopyAndMergeOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.token(t, "5", "WRITE")

	resp := f.do(t, http.MethodPost, "/api/v1/trees", owner, map[string]string{"id": "base", "name": "Base"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/v1/trees/base/nodes", owner, map[string]interface{}{"id": "A", "name": "A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/base/copy", owner, map[string]string{"id": "fork", "name": "Fork"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var fork queries.TreeView
	decode(t, resp, &fork)
	assert.Equal(t, "base", fork.OriginID)
	assert.Len(t, fork.Nodes, 1)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/fork/nodes", owner, map[string]interface{}{"id": "B", "name": "B", "parents": []string{"A"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/base/merge-requests", owner, map[string]string{"source_tree_id": "fork"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/trees/base/merge", owner, map[string]string{"source_tree_id": "fork"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/base/nodes/A/children", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var children queries.ChildrenView
	decode(t, resp, &children)
	assert.Equal(t, []string{"B"}, children.Children)

	resp = f.do(t, http.MethodGet, "/api/v1/trees/base/merge-requests", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var requests []map[string]interface{}
	decode(t, resp, &requests)
	require.Len(t, requests, 1)
	assert.Equal(t, "accepted", requests[0]["status"])
}
