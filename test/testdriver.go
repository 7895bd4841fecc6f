package test

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/godo.v2/glob"
	yaml "gopkg.in/yaml.v2"

	"belote.com/server/belote"
	"belote.com/server/game"
)

var testDriverLogger = log.With().Str("logger_name", "test::testdriver").Logger()

// playOut stops after this many intents in case a script never ends its round.
const maxPlayOutIntents = 64

type ScriptTestResult struct {
	Filename string
	Passed   bool
	Failures []error
	Disabled bool
}

func (s *ScriptTestResult) addError(e error) {
	s.Failures = append(s.Failures, e)
}

// runs game scripts and captures the results
// and output the results at the end
type TestDriver struct {
	ScriptResult map[string]*ScriptTestResult
	ScriptFiles  []string
}

func NewTestDriver() *TestDriver {
	return &TestDriver{ScriptResult: make(map[string]*ScriptTestResult), ScriptFiles: make([]string, 0)}
}

func LoadGameScript(filename string) (*GameScript, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Failed to load file: %s", filename))
	}
	var script GameScript
	err = yaml.Unmarshal(data, &script)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Failed to parse game script: %s", filename))
	}
	return &script, nil
}

func (t *TestDriver) RunGameScript(filename string) *ScriptTestResult {
	testDriverLogger.Info().Msgf("Running game script: %s", filename)
	result := &ScriptTestResult{Filename: filename, Failures: make([]error, 0)}
	t.ScriptResult[filename] = result
	t.ScriptFiles = append(t.ScriptFiles, filename)

	script, err := LoadGameScript(filename)
	if err != nil {
		result.addError(err)
		return result
	}
	if script.Disabled {
		result.Disabled = true
		return result
	}

	for _, e := range RunScript(script) {
		result.addError(e)
	}
	result.Passed = len(result.Failures) == 0
	return result
}

func (t *TestDriver) ReportResult() bool {
	passed := true
	for _, scriptFile := range t.ScriptFiles {
		result := t.ScriptResult[scriptFile]
		if result.Disabled {
			fmt.Printf("Script %s is disabled\n", result.Filename)
			continue
		}

		if len(result.Failures) != 0 {
			passed = false
			fmt.Printf("Script %s failed\n", scriptFile)
			fmt.Printf("===========================\n")
			for _, e := range result.Failures {
				fmt.Printf("%s\n", e.Error())
			}
			fmt.Printf("===========================\n")
		}
	}
	return passed
}

// RunScript plays a script against a fresh engine and returns every failed
// expectation. A step that fails unexpectedly stops the script.
func RunScript(script *GameScript) []error {
	seed := script.Seed
	if seed == 0 {
		seed = 1
	}
	engine := game.NewEngine(game.Config{TableCode: "script", TargetScore: script.TargetScore}, rand.New(rand.NewSource(seed)))
	runner := &scriptRunner{script: script, engine: engine}

	if len(script.Deck) > 0 {
		if err := runner.setupDeck(script.Deck); err != nil {
			return []error{err}
		}
	}
	for _, p := range script.Players {
		if err := runner.expect(0, game.Intent{Kind: game.IntentJoin, SessionID: p.Session, Name: p.Name}, ""); err != nil {
			return []error{err}
		}
	}
	for i, step := range script.Steps {
		if err := runner.runStep(i+1, step); err != nil {
			runner.failures = append(runner.failures, err)
			break
		}
	}
	return runner.failures
}

type scriptRunner struct {
	script   *GameScript
	engine   *game.Engine
	failures []error
}

func (r *scriptRunner) setupDeck(cards []string) error {
	deck := make([]belote.Card, 0, len(cards))
	for _, c := range cards {
		card, err := belote.NewCard(c)
		if err != nil {
			return err
		}
		deck = append(deck, card)
	}
	return r.engine.SetupNextDeck(deck)
}

func (r *scriptRunner) player(ref string) *game.Player {
	state := r.engine.State()
	for _, p := range state.Players {
		if (ref == TurnPlayer && p.ID == state.CurrentPlayerTurn) || p.Name == ref {
			return p
		}
	}
	return nil
}

// session resolves the session a step acts as: the seated player's current
// session, else the step's own session, else the one the players list gives.
func (r *scriptRunner) session(step ScriptStep) string {
	if step.Session != "" {
		return step.Session
	}
	if p := r.player(step.Player); p != nil {
		return p.ID
	}
	for _, p := range r.script.Players {
		if p.Name == step.Player {
			return p.Session
		}
	}
	return step.Player
}

func (r *scriptRunner) runStep(stepNo int, step ScriptStep) error {
	repeat := step.Repeat
	if repeat <= 0 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if err := r.runAction(stepNo, step); err != nil {
			return err
		}
	}
	if step.Verify != nil {
		for _, e := range r.verify(stepNo, step.Verify) {
			r.failures = append(r.failures, e)
		}
	}
	return nil
}

func (r *scriptRunner) runAction(stepNo int, step ScriptStep) error {
	state := r.engine.State()
	switch step.Action {
	case ActionVerify:
		return nil
	case ActionSetupDeck:
		return r.setupDeck(step.Deck)
	case ActionSettle:
		return r.expect(stepNo, game.Intent{Kind: game.IntentSettleTrick, ActionNum: state.ActionNum}, step.Reject)
	case ActionTimeout:
		return r.expect(stepNo, game.Intent{Kind: game.IntentTurnTimeout, ActionNum: state.ActionNum}, step.Reject)
	case ActionPlayOut:
		return r.playOut(stepNo)
	}

	in := game.Intent{SessionID: r.session(step)}
	switch step.Action {
	case ActionJoin:
		in.Kind = game.IntentJoin
		in.Name = step.Name
		if in.Name == "" {
			in.Name = step.Player
		}
	case ActionBid:
		bid, err := game.ParseBid(step.Bid)
		if err != nil {
			return fmt.Errorf("step %d: %s", stepNo, err)
		}
		in.Kind = game.IntentBid
		in.Bid = bid
	case ActionPlay:
		in.Kind = game.IntentPlayCard
		if step.Card == AutoCard {
			p := r.player(step.Player)
			if p == nil || len(p.Hand) == 0 {
				return fmt.Errorf("step %d: %s has no card to play", stepNo, step.Player)
			}
			in.Card = p.Hand[0]
		} else {
			card, err := belote.NewCard(step.Card)
			if err != nil {
				return fmt.Errorf("step %d: %s", stepNo, err)
			}
			in.Card = card
		}
	case ActionBelote:
		in.Kind = game.IntentDeclareBelote
	case ActionNextHand:
		in.Kind = game.IntentNextHand
	case ActionNewGame:
		in.Kind = game.IntentNewGame
	case ActionDisconnect:
		in.Kind = game.IntentDisconnect
	default:
		return fmt.Errorf("step %d: unknown action [%s]", stepNo, step.Action)
	}
	return r.expect(stepNo, in, step.Reject)
}

// expect applies an intent. With a reject reason the intent must be refused
// for that reason, otherwise it must be accepted.
func (r *scriptRunner) expect(stepNo int, in game.Intent, reject string) error {
	_, err := r.engine.Apply(in)
	if reject == "" {
		if err != nil {
			return fmt.Errorf("step %d: %s by [%s] failed: %s", stepNo, in.Kind, in.SessionID, err)
		}
		return nil
	}
	var rejection game.RejectionError
	if !errors.As(err, &rejection) {
		return fmt.Errorf("step %d: %s by [%s] expected rejection [%s] but was accepted", stepNo, in.Kind, in.SessionID, reject)
	}
	if rejection.Reason() != reject {
		return fmt.Errorf("step %d: %s by [%s] rejected with [%s], expected [%s]", stepNo, in.Kind, in.SessionID, rejection.Reason(), reject)
	}
	return nil
}

func (r *scriptRunner) playOut(stepNo int) error {
	for i := 0; i < maxPlayOutIntents; i++ {
		state := r.engine.State()
		if state.Phase != game.PhasePlaying {
			return nil
		}
		if state.TrickWinnerID != "" {
			if err := r.expect(stepNo, game.Intent{Kind: game.IntentSettleTrick, ActionNum: state.ActionNum}, ""); err != nil {
				return err
			}
			continue
		}
		p := r.player(TurnPlayer)
		if err := r.expect(stepNo, game.Intent{Kind: game.IntentPlayCard, SessionID: p.ID, Card: p.Hand[0]}, ""); err != nil {
			return err
		}
	}
	return fmt.Errorf("step %d: round did not end", stepNo)
}

func (r *scriptRunner) verify(stepNo int, v *Verify) []error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("step %d: %s", stepNo, fmt.Sprintf(format, args...)))
	}
	state := r.engine.Snapshot()
	nameOf := func(sessionID string) string {
		for _, p := range state.Players {
			if p.ID == sessionID {
				return p.Name
			}
		}
		return sessionID
	}
	team := func(name string) *game.Team {
		for _, t := range state.Teams {
			if t.Name == name {
				return t
			}
		}
		return nil
	}

	if v.Phase != "" && string(state.Phase) != v.Phase {
		fail("phase is %s, expected %s", state.Phase, v.Phase)
	}
	if v.Turn != "" && nameOf(state.CurrentPlayerTurn) != v.Turn {
		fail("turn is %s, expected %s", nameOf(state.CurrentPlayerTurn), v.Turn)
	}
	if v.Trump != "" && string(state.TrumpSuit) != v.Trump {
		fail("trump is %s, expected %s", state.TrumpSuit, v.Trump)
	}
	if v.Taker != "" && state.TakerTeamName != v.Taker {
		fail("taker is %s, expected %s", state.TakerTeamName, v.Taker)
	}
	if v.BeloteHolder != "" && nameOf(state.BeloteHolderID) != v.BeloteHolder {
		fail("belote holder is %s, expected %s", nameOf(state.BeloteHolderID), v.BeloteHolder)
	}
	if v.TrickWinner != "" && nameOf(state.TrickWinnerID) != v.TrickWinner {
		fail("trick winner is %s, expected %s", nameOf(state.TrickWinnerID), v.TrickWinner)
	}
	if v.Hands != nil {
		sizes := make([]int, len(state.Players))
		for i, p := range state.Players {
			sizes[i] = len(p.Hand)
		}
		if fmt.Sprint(sizes) != fmt.Sprint(v.Hands) {
			fail("hand sizes are %v, expected %v", sizes, v.Hands)
		}
	}
	for name, cards := range v.Hand {
		p := r.player(name)
		if p == nil {
			fail("%s is not seated", name)
			continue
		}
		held := make([]string, len(p.Hand))
		for i, c := range p.Hand {
			held[i] = c.String()
		}
		if got := strings.Join(held, " "); got != strings.Join(cards, " ") {
			fail("hand of %s is %s, expected %s", name, got, strings.Join(cards, " "))
		}
	}
	if v.Deck != nil && len(state.Deck) != *v.Deck {
		fail("deck has %d cards, expected %d", len(state.Deck), *v.Deck)
	}
	if v.Trick != nil && len(state.CurrentTrick) != *v.Trick {
		fail("trick has %d cards, expected %d", len(state.CurrentTrick), *v.Trick)
	}
	if v.Tricks != nil && len(state.TrickHistory) != *v.Tricks {
		fail("%d tricks recorded, expected %d", len(state.TrickHistory), *v.Tricks)
	}
	if v.Rounds != nil && len(state.ScoreHistory) != *v.Rounds {
		fail("%d rounds settled, expected %d", len(state.ScoreHistory), *v.Rounds)
	}
	if v.Result != "" && string(state.ContractResult) != v.Result {
		fail("contract %s, expected %s", state.ContractResult, v.Result)
	}
	for name, score := range v.Scores {
		if t := team(name); t == nil || t.Score != score {
			fail("score of %s is not %d", name, score)
		}
	}
	for name, b := range v.Belote {
		if t := team(name); t == nil || string(t.Belote) != b {
			fail("belote of %s is not %s", name, b)
		}
	}
	for name, missed := range v.Missed {
		if t := team(name); t == nil || t.MissedBeloteWindow != missed {
			fail("missed belote window of %s is not %v", name, missed)
		}
	}
	for name, connected := range v.Connected {
		if p := r.player(name); p == nil || p.Connected != connected {
			fail("%s connected is not %v", name, connected)
		}
	}
	if v.Seats != nil {
		seats := make([]string, len(state.Players))
		for i, p := range state.Players {
			seats[i] = p.Name
		}
		if strings.Join(seats, ",") != strings.Join(v.Seats, ",") {
			fail("seats are %v, expected %v", seats, v.Seats)
		}
	}
	if v.Winner != "" && state.WinnerTeam != v.Winner {
		fail("winner is %s, expected %s", state.WinnerTeam, v.Winner)
	}
	if state.Phase != game.PhaseWaiting && state.CardCount() != belote.DeckSize {
		fail("%d cards in play", state.CardCount())
	}
	return errs
}

func RunGameScriptTests(fileOrDir string, testName string) error {
	info, err := os.Stat(fileOrDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist", fileOrDir)
	}
	pattern := fileOrDir
	if info.IsDir() {
		pattern = fmt.Sprintf("%s/**/*.yaml", fileOrDir)
	}
	patterns := []string{pattern}
	files, _, err := glob.Glob(patterns)
	if err != nil {
		return errors.Wrapf(err, "Failed to get game script file(s) from dir: %s", fileOrDir)
	}

	testDriver := NewTestDriver()
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if testName != "" && !strings.Contains(file.Name(), testName) {
			continue
		}
		testDriver.RunGameScript(file.Path)
	}

	if !testDriver.ReportResult() {
		return fmt.Errorf("One or more scripts failed")
	}
	testDriverLogger.Info().Msgf("All %d scripts passed", len(testDriver.ScriptFiles))
	return nil
}
