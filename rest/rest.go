package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"belote.com/server/crashtest"
	"belote.com/server/game"
)

var restLogger = log.With().Str("logger_name", "game::rest").Logger()

const snapshotTimeout = 3 * time.Second

type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TableReader is what the endpoints need from the running table.
type TableReader interface {
	TableCode() string
	Snapshot(ctx context.Context) (*game.GameState, error)
	Archive() game.RoundArchive
}

type server struct {
	table TableReader
}

// NewRouter builds the internal HTTP endpoints of a table.
func NewRouter(table TableReader) *gin.Engine {
	s := &server{table: table}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.GET("/table", s.tableState)
	r.GET("/history", s.history)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Panics the table loop at the given point, for recovery tests
	r.POST("/setup-crash", setupCrash)
	return r
}

func RunRestServer(table TableReader, port int) {
	r := NewRouter(table)
	addr := fmt.Sprintf(":%d", port)
	restLogger.Info().Msgf("REST server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		restLogger.Error().Err(err).Msg("REST server stopped")
	}
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "table": s.table.TableCode()})
}

func (s *server) tableState(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()
	state, err := s.table.Snapshot(ctx)
	if err != nil {
		restLogger.Error().Err(err).Msg("Could not read the table state")
		c.JSON(http.StatusServiceUnavailable, appError{Code: http.StatusServiceUnavailable, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *server) history(c *gin.Context) {
	entries, err := s.table.Archive().List(s.table.TableCode())
	if err != nil {
		restLogger.Error().Err(err).Msg("Could not read the round archive")
		c.JSON(http.StatusInternalServerError, appError{Code: http.StatusInternalServerError, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": s.table.TableCode(), "rounds": entries})
}

func setupCrash(c *gin.Context) {
	type Payload struct {
		CrashPoint string `json:"crashPoint"`
	}
	var payload Payload
	if err := c.BindJSON(&payload); err != nil {
		restLogger.Error().Msgf("Unable to parse crash configuration. Error: %v", err)
		c.JSON(http.StatusBadRequest, appError{Code: http.StatusBadRequest, Message: err.Error()})
		return
	}

	restLogger.Info().Msgf("Received request to crash the table at [%s]", payload.CrashPoint)
	if err := crashtest.Set(crashtest.CrashPoint(payload.CrashPoint)); err != nil {
		c.JSON(http.StatusBadRequest, appError{Code: http.StatusBadRequest, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"crashPoint": payload.CrashPoint})
}
