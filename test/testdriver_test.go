package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, filename string) {
	testDriver := NewTestDriver()
	result := testDriver.RunGameScript(filename)
	require.False(t, result.Disabled)
	for _, e := range result.Failures {
		t.Error(e)
	}
	assert.True(t, result.Passed)
}

func TestBeloteCapot(t *testing.T) {
	runScript(t, "testdata/game-scripts/belote-capot.yaml")
}

func TestSecondBiddingRound(t *testing.T) {
	runScript(t, "testdata/game-scripts/second-bidding-round.yaml")
}

func TestRedeal(t *testing.T) {
	runScript(t, "testdata/game-scripts/redeal.yaml")
}

func TestReconnect(t *testing.T) {
	runScript(t, "testdata/game-scripts/reconnect.yaml")
}

func TestGameOver(t *testing.T) {
	runScript(t, "testdata/game-scripts/game-over.yaml")
}

func TestAllScripts(t *testing.T) {
	assert.NoError(t, RunGameScriptTests("testdata/game-scripts", ""))
}

func TestScriptReportsFailures(t *testing.T) {
	script := &GameScript{
		Players: []ScriptPlayer{{Name: "P1", Session: "s1"}},
		Steps: []ScriptStep{
			{Player: "P1", Action: ActionBid, Bid: "pass"},
		},
	}
	errs := RunScript(script)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "wrong phase")

	script.Steps = []ScriptStep{
		{Action: ActionVerify, Verify: &Verify{Phase: "playing"}},
	}
	errs = RunScript(script)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "phase is waiting")
}
