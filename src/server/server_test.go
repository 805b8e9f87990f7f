package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalconsumer/src/model"
)

type stubRecords struct {
	recent      []model.ExecutionRecord
	unprotected []model.ExecutionRecord
	err         error
	lastLimit   int
}

func (s *stubRecords) FindRecent(_ context.Context, limit int) ([]model.ExecutionRecord, error) {
	s.lastLimit = limit
	return s.recent, s.err
}

func (s *stubRecords) FindUnprotected(_ context.Context, limit int) ([]model.ExecutionRecord, error) {
	s.lastLimit = limit
	return s.unprotected, s.err
}

func TestHealthcheck(t *testing.T) {
	router := NewRouter(&stubRecords{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestExecutionsEndpoint(t *testing.T) {
	stub := &stubRecords{recent: []model.ExecutionRecord{
		{ID: 2, Symbol: "SOL", Outcome: model.ExecutionOutcomeExecuted},
		{ID: 1, Symbol: "ETH", Outcome: model.ExecutionOutcomeDuplicate},
	}}
	router := NewRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/executions?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, stub.lastLimit)

	var got []model.ExecutionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "SOL", got[0].Symbol)
}

func TestUnprotectedEndpoint(t *testing.T) {
	stub := &stubRecords{unprotected: []model.ExecutionRecord{
		{ID: 3, Symbol: "ETH", Outcome: model.ExecutionOutcomeExecuted, BracketsAttached: false},
	}}
	router := NewRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/executions/unprotected", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.ExecutionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.False(t, got[0].BracketsAttached)
}

func TestExecutionsEndpointStoreError(t *testing.T) {
	router := NewRouter(&stubRecords{err: fmt.Errorf("db down")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/executions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
