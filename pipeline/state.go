package pipeline

import (
	"sync"
	"time"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// StepRecord is the bookkeeping entry for one stage within one
// execution. Immutable once the status is terminal.
type StepRecord struct {
	Name        string
	Status      constant.StepStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Duration returns the elapsed time of a finished step, zero while it is
// still running.
func (r StepRecord) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StateManager tracks step records in insertion order for one execution
// attempt. It never mutates the pipeline Context and never talks to the
// execution store; it exists for ordered audit and reporting.
type StateManager struct {
	mu        sync.Mutex
	startedAt time.Time
	order     []string
	records   map[string]*StepRecord
	now       func() time.Time
}

func NewStateManager() *StateManager {
	now := time.Now
	return &StateManager{
		startedAt: now(),
		records:   map[string]*StepRecord{},
		now:       now,
	}
}

func (m *StateManager) MarkStepStarted(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, name)
	m.records[name] = &StepRecord{
		Name:      name,
		Status:    constant.StepStatusRunning,
		StartedAt: m.now(),
	}
}

func (m *StateManager) MarkStepCompleted(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok || record.Status != constant.StepStatusRunning {
		return
	}
	done := m.now()
	record.CompletedAt = &done
	record.Status = constant.StepStatusCompleted
}

func (m *StateManager) MarkStepFailed(name string, stepErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok || record.Status != constant.StepStatusRunning {
		return
	}
	done := m.now()
	record.CompletedAt = &done
	record.Status = constant.StepStatusFailed
	if stepErr != nil {
		record.Error = stepErr.Error()
	}
}

// ExecutedSteps returns the step names in the order they started.
func (m *StateManager) ExecutedSteps() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Records returns copies of all step records in insertion order.
func (m *StateManager) Records() []StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StepRecord, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.records[name])
	}
	return out
}

func (m *StateManager) StepStatus(name string) (constant.StepStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return "", false
	}
	return record.Status, true
}

func (m *StateManager) StepDuration(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok || record.CompletedAt == nil {
		return 0, false
	}
	return record.Duration(), true
}

func (m *StateManager) TotalDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.startedAt)
}

// FailedStep returns the name of the first failed step, or "".
func (m *StateManager) FailedStep() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.order {
		if m.records[name].Status == constant.StepStatusFailed {
			return name
		}
	}
	return ""
}
