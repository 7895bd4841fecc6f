package crashtest

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// CrashPoint names a place in the table loop where a crash can be injected.
type CrashPoint string

const (
	CrashPoint_NO_CRASH     CrashPoint = "NO_CRASH"
	CrashPoint_DEAL         CrashPoint = "DEAL"
	CrashPoint_SETTLE_TRICK CrashPoint = "SETTLE_TRICK"
	CrashPoint_SETTLE_ROUND CrashPoint = "SETTLE_ROUND"
)

// IsValid checks if cp is a valid enum value for CrashPoint.
func (cp CrashPoint) IsValid() error {
	switch cp {
	case CrashPoint_NO_CRASH, CrashPoint_DEAL, CrashPoint_SETTLE_TRICK, CrashPoint_SETTLE_ROUND:
		return nil
	}
	return fmt.Errorf("Invalid crash point [%s]", cp)
}

// Crash is the panic value raised by Hit.
type Crash struct {
	Point CrashPoint
}

func (c Crash) Error() string {
	return fmt.Sprintf("crash test at %s", c.Point)
}

var crashTestLogger = log.With().Str("logger_name", "crashtest::controller").Logger()

var (
	lock    sync.Mutex
	crashAt = CrashPoint_NO_CRASH
)

// Set arms a single crash at the given point.
func Set(cp CrashPoint) error {
	if err := cp.IsValid(); err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	crashAt = cp
	crashTestLogger.Info().Msgf("Crash point set to %s", cp)
	return nil
}

func Current() CrashPoint {
	lock.Lock()
	defer lock.Unlock()
	return crashAt
}

// Hit panics if cp is the armed crash point. The point is disarmed first so
// the recovered table does not crash again on the same step.
func Hit(cp CrashPoint) {
	lock.Lock()
	armed := cp != CrashPoint_NO_CRASH && cp == crashAt
	if armed {
		crashAt = CrashPoint_NO_CRASH
	}
	lock.Unlock()
	if armed {
		crashTestLogger.Warn().Msgf("CRASHTEST: %s", cp)
		panic(Crash{Point: cp})
	}
}
