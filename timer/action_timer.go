package timer

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var actionTimerLogger = log.With().Str("logger_name", "timer::action_timer").Logger()

// TimerMsg identifies the turn a timer was started for.
type TimerMsg struct {
	PlayerID  string
	ActionNum uint32
	ExpireAt  time.Time
}

// ActionTimer runs at most one turn timer at a time. The callback is invoked
// from the timer goroutine when the current turn expires.
type ActionTimer struct {
	tableCode string

	chReset   chan TimerMsg
	chPause   chan bool
	chEndLoop chan bool

	callback     func(TimerMsg)
	crashHandler func()
}

func NewActionTimer(tableCode string, callback func(TimerMsg), crashHandler func()) *ActionTimer {
	return &ActionTimer{
		tableCode:    tableCode,
		chReset:      make(chan TimerMsg),
		chPause:      make(chan bool),
		chEndLoop:    make(chan bool, 10),
		callback:     callback,
		crashHandler: crashHandler,
	}
}

func (a *ActionTimer) Run() {
	go a.loop()
}

func (a *ActionTimer) Destroy() {
	a.chEndLoop <- true
}

func (a *ActionTimer) loop() {
	defer func() {
		err := recover()
		if err != nil {
			actionTimerLogger.Error().
				Str("table", a.tableCode).
				Msgf("Action timer loop returning due to panic: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			if a.crashHandler != nil {
				a.crashHandler()
			}
		} else {
			actionTimerLogger.Debug().Str("table", a.tableCode).Msg("Action timer loop returning")
		}
	}()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	var current TimerMsg
	for {
		select {
		case <-a.chEndLoop:
			stopTimer(timer)
			return
		case <-a.chPause:
			stopTimer(timer)
		case msg := <-a.chReset:
			stopTimer(timer)
			current = msg
			timer.Reset(time.Until(msg.ExpireAt))
		case <-timer.C:
			actionTimerLogger.Debug().
				Str("table", a.tableCode).
				Msgf("Turn of [%s] expired at action %d", current.PlayerID, current.ActionNum)
			a.callback(current)
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (a *ActionTimer) Pause() {
	a.chPause <- true
}

func (a *ActionTimer) Reset(t TimerMsg) error {
	var errMsgs []string
	if t.PlayerID == "" {
		errMsgs = append(errMsgs, "invalid playerID")
	}
	if t.ExpireAt.IsZero() {
		errMsgs = append(errMsgs, "invalid expireAt")
	}
	if len(errMsgs) > 0 {
		return fmt.Errorf(strings.Join(errMsgs, "; "))
	}
	a.chReset <- t
	return nil
}
