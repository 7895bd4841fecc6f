package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type tableServerEnvironment struct {
	TableCode     string
	NatsURL       string
	ArchiveMethod string
	RedisHost     string
	RedisPort     string
	RedisPW       string
	RedisDB       string
	RestPort      string
	WsPort        string
	TargetScore   string
	LogLevel      string
}

// Env is a helper object for accessing environment variables.
var Env = &tableServerEnvironment{
	TableCode:     "TABLE_CODE",
	NatsURL:       "NATS_URL",
	ArchiveMethod: "ARCHIVE_METHOD",
	RedisHost:     "REDIS_HOST",
	RedisPort:     "REDIS_PORT",
	RedisPW:       "REDIS_PW",
	RedisDB:       "REDIS_DB",
	RestPort:      "REST_PORT",
	WsPort:        "WS_PORT",
	TargetScore:   "TARGET_SCORE",
	LogLevel:      "LOG_LEVEL",
}

func (e *tableServerEnvironment) GetTableCode() string {
	code := os.Getenv(e.TableCode)
	if code == "" {
		return "belote"
	}
	return code
}

// GetNatsURL returns an empty string when the NATS transport is disabled.
func (e *tableServerEnvironment) GetNatsURL() string {
	return os.Getenv(e.NatsURL)
}

// GetArchiveMethod is either "memory" (default) or "redis".
func (e *tableServerEnvironment) GetArchiveMethod() string {
	method := strings.ToLower(os.Getenv(e.ArchiveMethod))
	if method == "" {
		return "memory"
	}
	if method != "memory" && method != "redis" {
		msg := fmt.Sprintf("Invalid %s [%s]", e.ArchiveMethod, method)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return method
}

func (e *tableServerEnvironment) GetRedisHost() string {
	host := os.Getenv(e.RedisHost)
	if host == "" {
		msg := fmt.Sprintf("%s is not defined", e.RedisHost)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return host
}

func (e *tableServerEnvironment) GetRedisPort() int {
	return e.requiredInt(e.RedisPort)
}

func (e *tableServerEnvironment) GetRedisPW() string {
	return os.Getenv(e.RedisPW)
}

func (e *tableServerEnvironment) GetRedisDB() int {
	return e.optionalInt(e.RedisDB, 0)
}

func (e *tableServerEnvironment) GetRestPort() int {
	return e.optionalInt(e.RestPort, 8080)
}

func (e *tableServerEnvironment) GetWsPort() int {
	return e.optionalInt(e.WsPort, 8081)
}

func (e *tableServerEnvironment) GetTargetScore() int {
	return e.optionalInt(e.TargetScore, 1000)
}

func (e *tableServerEnvironment) GetLogLevel() string {
	level := os.Getenv(e.LogLevel)
	if level == "" {
		return "info"
	}
	return level
}

func (e *tableServerEnvironment) requiredInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		msg := fmt.Sprintf("%s is not defined", name)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	num, err := strconv.Atoi(v)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s [%s]", name, v)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return num
}

func (e *tableServerEnvironment) optionalInt(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(v)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s [%s]", name, v)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return num
}
