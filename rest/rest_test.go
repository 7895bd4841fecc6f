package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belote.com/server/belote"
	"belote.com/server/crashtest"
	"belote.com/server/game"
)

type fakeTable struct {
	state   *game.GameState
	err     error
	archive game.RoundArchive
}

func (f *fakeTable) TableCode() string { return "T1" }

func (f *fakeTable) Snapshot(ctx context.Context) (*game.GameState, error) {
	return f.state, f.err
}

func (f *fakeTable) Archive() game.RoundArchive { return f.archive }

func get(t *testing.T, table TableReader, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := NewRouter(table)
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, &fakeTable{archive: game.NewMemoryRoundArchive()}, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"OK"`)
}

func TestTableSnapshot(t *testing.T) {
	state := &game.GameState{TableCode: "T1", Phase: game.PhaseBidding}
	w := get(t, &fakeTable{state: state, archive: game.NewMemoryRoundArchive()}, "/table")
	require.Equal(t, http.StatusOK, w.Code)

	var got game.GameState
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, game.PhaseBidding, got.Phase)
}

func TestTableSnapshotUnavailable(t *testing.T) {
	w := get(t, &fakeTable{err: errors.New("table is stopped"), archive: game.NewMemoryRoundArchive()}, "/table")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistory(t *testing.T) {
	archive := game.NewMemoryRoundArchive()
	require.NoError(t, archive.Append("T1", game.ScoreEntry{Round: 1, Trump: belote.Hearts, Result: belote.ContractSucceeded}))
	w := get(t, &fakeTable{archive: archive}, "/history")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Table  string            `json:"table"`
		Rounds []game.ScoreEntry `json:"rounds"`
	}
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rounds, 1)
	assert.Equal(t, belote.Hearts, body.Rounds[0].Trump)
}

func TestMetrics(t *testing.T) {
	w := get(t, &fakeTable{archive: game.NewMemoryRoundArchive()}, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupCrash(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&fakeTable{archive: game.NewMemoryRoundArchive()})
	defer crashtest.Set(crashtest.CrashPoint_NO_CRASH)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/setup-crash", strings.NewReader(`{"crashPoint":"SETTLE_ROUND"}`))
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, crashtest.CrashPoint_SETTLE_ROUND, crashtest.Current())

	w = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodPost, "/setup-crash", strings.NewReader(`{"crashPoint":"LUNCH"}`))
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, crashtest.CrashPoint_SETTLE_ROUND, crashtest.Current())
}
