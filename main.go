package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"belote.com/server/belote"
	"belote.com/server/game"
	"belote.com/server/logging"
	"belote.com/server/nats"
	"belote.com/server/rest"
	"belote.com/server/test"
	"belote.com/server/util"
	"belote.com/server/ws"
)

var runGameScriptTests *bool
var gameScriptsFileOrDir *string
var delayConfigFile *string
var testName *string
var mainLogger = logging.GetZeroLogger("main::main", nil)

func init() {
	runGameScriptTests = flag.Bool("script-tests", false, "runs script tests")
	gameScriptsFileOrDir = flag.String("game-script", "test/testdata/game-scripts", "runs tests with game script files")
	delayConfigFile = flag.String("delays", "delays.yaml", "YAML file containing pause times")
	testName = flag.String("testname", "", "runs a specific test")
}

func main() {
	err := run()
	if err != nil {
		mainLogger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	logLevel := logging.SetLevel(util.Env.GetLogLevel())
	fmt.Printf("Setting log level to %s\n", logLevel)

	if *runGameScriptTests {
		return test.RunGameScriptTests(*gameScriptsFileOrDir, *testName)
	}

	delays, err := game.ParseDelayConfig(*delayConfigFile)
	if err != nil {
		return errors.Wrap(err, "Error while parsing delay config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runTable(ctx, delays)
}

func newArchive() game.RoundArchive {
	if util.Env.GetArchiveMethod() == "redis" {
		redisURL := fmt.Sprintf("%s:%d", util.Env.GetRedisHost(), util.Env.GetRedisPort())
		mainLogger.Info().Msgf("Archiving rounds in redis at %s", redisURL)
		return game.NewRedisRoundArchive(redisURL, util.Env.GetRedisPW(), util.Env.GetRedisDB())
	}
	return game.NewMemoryRoundArchive()
}

func runTable(ctx context.Context, delays game.Delays) error {
	tableCode := util.Env.GetTableCode()
	engine := game.NewEngine(game.Config{
		TableCode:   tableCode,
		TargetScore: util.Env.GetTargetScore(),
	}, belote.NewRand())

	hub := ws.NewHub(tableCode)
	broadcasters := game.MultiBroadcaster{hub}

	var natsTable *nats.NatsTable
	if natsURL := util.Env.GetNatsURL(); natsURL != "" {
		mainLogger.Info().Msgf("NATS URL: %s", natsURL)
		nc, err := natsgo.Connect(natsURL)
		if err != nil {
			return errors.Wrap(err, "Error connecting to NATS server")
		}
		defer nc.Close()
		natsTable = nats.NewNatsTable(nc, tableCode)
		broadcasters = append(broadcasters, natsTable)
	}

	table := game.NewTable(engine, delays, newArchive(), broadcasters)
	if natsTable != nil {
		if err := natsTable.Attach(table); err != nil {
			return errors.Wrap(err, "Error subscribing to table subjects")
		}
		defer natsTable.Cleanup()
	}

	go rest.RunRestServer(table, util.Env.GetRestPort())

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(hub, table))
	wsServer := &http.Server{Addr: fmt.Sprintf(":%d", util.Env.GetWsPort()), Handler: mux}
	go func() {
		mainLogger.Info().Msgf("Websocket server listening on %s", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Error().Msgf("Websocket server stopped: %v", err)
		}
	}()

	mainLogger.Info().Msgf("Table %s is open", tableCode)
	table.Run(ctx)
	return wsServer.Close()
}
