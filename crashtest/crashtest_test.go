package crashtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitPanicsOnce(t *testing.T) {
	require.NoError(t, Set(CrashPoint_SETTLE_TRICK))
	defer Set(CrashPoint_NO_CRASH)

	assert.NotPanics(t, func() { Hit(CrashPoint_DEAL) })
	assert.PanicsWithValue(t, Crash{Point: CrashPoint_SETTLE_TRICK}, func() { Hit(CrashPoint_SETTLE_TRICK) })
	assert.Equal(t, CrashPoint_NO_CRASH, Current())
	assert.NotPanics(t, func() { Hit(CrashPoint_SETTLE_TRICK) })
}

func TestSetRejectsUnknownPoint(t *testing.T) {
	assert.Error(t, Set(CrashPoint("SOMEWHERE")))
	assert.Equal(t, CrashPoint_NO_CRASH, Current())
}
