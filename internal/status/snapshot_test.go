package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warpvoice/internal/policy"
)

func TestProgressBar(t *testing.T) {
	total := 10 * time.Second
	assert.Equal(t, "░░░░░░░░░░░░░░░░░░░░", ProgressBar(0, total, BarWidth))
	assert.Equal(t, "██████████░░░░░░░░░░", ProgressBar(5*time.Second, total, BarWidth))
	assert.Equal(t, "████████████████████", ProgressBar(12*time.Second, total, BarWidth))
	assert.Equal(t, "░░░░", ProgressBar(-time.Second, total, 4))
	assert.Equal(t, "", ProgressBar(time.Second, total, 0))
}

func TestMergeAppliesOnlyPresentFields(t *testing.T) {
	s := Snapshot{Recording: true, AudioLevel: 0.5, Cycle: 3, StatusText: "old"}

	var u Update
	require.NoError(t, json.Unmarshal([]byte(`{"recording":false,"timer":2.5}`), &u))
	s.Merge(u)

	assert.False(t, s.Recording)
	assert.Equal(t, 2.5, s.Timer)
	assert.Equal(t, 0.5, s.AudioLevel)
	assert.Equal(t, 3, s.Cycle)
	assert.Equal(t, "old", s.StatusText)
}

func TestSnapshotWireFormat(t *testing.T) {
	data, err := json.Marshal(Snapshot{Recording: true, AudioLevel: 0.25, Timer: 1.5, Cycle: 2, StatusText: "x"})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"recording":true,"confirming":false,"audio_level":0.25,"timer":1.5,"cycle":2,"status_text":"x"}`,
		string(data))
}

func TestFromSession(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	proj := Projection{Params: policy.DefaultParams(), ConfirmKey: "space"}

	t.Run("waiting", func(t *testing.T) {
		s := policy.NewSession("id", start)
		s.Cycle = 4
		snap := FromSession(s, 0.001, start.Add(time.Second), proj)
		assert.False(t, snap.Recording)
		assert.False(t, snap.Confirming)
		assert.Equal(t, 0.0, snap.Timer)
		assert.Equal(t, 4, snap.Cycle)
		assert.Equal(t, "Ready for voice input (cycle 4)", snap.StatusText)
	})

	t.Run("recording loud", func(t *testing.T) {
		s := policy.NewSession("id", start)
		s.Phase = policy.PhaseRecording
		snap := FromSession(s, 0.05, start, proj)
		assert.True(t, snap.Recording)
		assert.Equal(t, "Recording - Audio: 0.0500", snap.StatusText)
	})

	t.Run("recording silent", func(t *testing.T) {
		s := policy.NewSession("id", start)
		s.Phase = policy.PhaseRecording
		snap := FromSession(s, 0, start.Add(1500*time.Millisecond), proj)
		assert.InDelta(t, 1.5, snap.Timer, 1e-9)
		assert.Equal(t, "Recording - Silence: 1.5s", snap.StatusText)
	})

	t.Run("confirming", func(t *testing.T) {
		s := policy.NewSession("id", start)
		s.Phase = policy.PhaseConfirming
		snap := FromSession(s, 0, start.Add(5*time.Second), proj)
		assert.True(t, snap.Confirming)
		assert.InDelta(t, 5.0, snap.Timer, 1e-9)
		assert.Equal(t, "Confirming: [██████████░░░░░░░░░░] 5.0s | [SPACE] to confirm now", snap.StatusText)

		s.ManualConfirmRequested = true
		snap = FromSession(s, 0, start.Add(5*time.Second), proj)
		assert.Contains(t, snap.StatusText, "Confirmed!")
	})

	t.Run("degraded and stopped", func(t *testing.T) {
		s := policy.NewSession("id", start)
		s.Degraded = true
		assert.Contains(t, FromSession(s, 0, start, proj).StatusText, "audio degraded")

		s.Running = false
		assert.Equal(t, "Stopped by user | audio degraded", FromSession(s, 0, start, proj).StatusText)
	})
}
