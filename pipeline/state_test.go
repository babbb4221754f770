package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

func newClockedStateManager(start time.Time, tick time.Duration) *StateManager {
	now := start
	m := NewStateManager()
	m.startedAt = start
	m.now = func() time.Time {
		now = now.Add(tick)
		return now
	}
	return m
}

func TestStateManagerTracksOrder(t *testing.T) {
	m := NewStateManager()
	steps := []string{constant.StepSpeech, constant.StepSubtitle, constant.StepSegment}
	for _, step := range steps {
		m.MarkStepStarted(step)
		m.MarkStepCompleted(step)
	}

	assert.Equal(t, steps, m.ExecutedSteps())

	records := m.Records()
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, steps[i], record.Name)
		assert.Equal(t, constant.StepStatusCompleted, record.Status)
	}
}

func TestStateManagerStepDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := newClockedStateManager(start, time.Second)

	m.MarkStepStarted(constant.StepSpeech)
	m.MarkStepCompleted(constant.StepSpeech)

	duration, ok := m.StepDuration(constant.StepSpeech)
	require.True(t, ok)
	assert.Equal(t, time.Second, duration)

	_, ok = m.StepDuration(constant.StepUpload)
	assert.False(t, ok)
}

func TestStateManagerFailureIsTerminal(t *testing.T) {
	m := NewStateManager()
	m.MarkStepStarted(constant.StepSpeech)
	m.MarkStepFailed(constant.StepSpeech, fmt.Errorf("service unavailable"))

	// terminal records ignore later transitions
	m.MarkStepCompleted(constant.StepSpeech)

	status, ok := m.StepStatus(constant.StepSpeech)
	require.True(t, ok)
	assert.Equal(t, constant.StepStatusFailed, status)
	assert.Equal(t, constant.StepSpeech, m.FailedStep())

	records := m.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "service unavailable", records[0].Error)
}

func TestStateManagerFailedStepEmptyWhenHealthy(t *testing.T) {
	m := NewStateManager()
	m.MarkStepStarted(constant.StepSpeech)
	m.MarkStepCompleted(constant.StepSpeech)
	assert.Equal(t, "", m.FailedStep())
}
