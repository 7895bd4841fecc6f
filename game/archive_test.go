package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belote.com/server/belote"
)

func TestMemoryRoundArchive(t *testing.T) {
	archive := NewMemoryRoundArchive()
	entries, err := archive.List("T1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := ScoreEntry{
		Round:  1,
		Trump:  belote.Spades,
		Taker:  TeamNames[0],
		Points: map[string]int{TeamNames[0]: 0, TeamNames[1]: 162},
		Result: belote.ContractFailed,
		Belote: map[string]belote.BeloteState{TeamNames[0]: belote.BeloteNone, TeamNames[1]: belote.Rebelote},
	}
	require.NoError(t, archive.Append("T1", first))
	require.NoError(t, archive.Append("T1", ScoreEntry{Round: 2, Trump: belote.Clubs}))
	require.NoError(t, archive.Append("T2", ScoreEntry{Round: 1}))

	entries, err = archive.List("T1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, 2, entries[1].Round)

	require.NoError(t, archive.Remove("T1"))
	entries, err = archive.List("T1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = archive.List("T2")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseDelayConfig(t *testing.T) {
	delays, err := ParseDelayConfig("testdata/delays.yaml")
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), delays.TrickSettle)
	assert.Equal(t, uint32(30000), delays.TurnTimeout)

	_, err = ParseDelayConfig("testdata/missing.yaml")
	assert.Error(t, err)
}
