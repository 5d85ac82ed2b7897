package stream

import (
	"sync"
)

// Metrics простые счётчики стримов для мониторинга
type Metrics struct {
	mu sync.RWMutex

	StreamsStarted   int64
	StreamsCompleted int64
	StreamsStopped   int64
	StreamsFailed    int64
	ChunksEmitted    int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamsStarted++
}

func (m *Metrics) RecordCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamsCompleted++
}

func (m *Metrics) RecordStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamsStopped++
}

func (m *Metrics) RecordFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamsFailed++
}

func (m *Metrics) RecordChunk() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChunksEmitted++
}

// Snapshot копия счётчиков
func (m *Metrics) Snapshot() (started, completed, stopped, failed, chunks int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.StreamsStarted, m.StreamsCompleted, m.StreamsStopped, m.StreamsFailed, m.ChunksEmitted
}
