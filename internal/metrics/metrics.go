// Package metrics counts what one pipeline run did.
package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Collection
	sourcesOK         int
	sourcesFailed     int
	articlesCollected int
	entriesSkipped    map[string]int

	// Analysis and selection
	analyzed       int
	analysisFailed map[string]int
	selected       int

	// Persistence
	saved        int
	saveFailures int

	stages    map[string]time.Duration
	startedAt time.Time
	lastError string
}

func New() *Metrics {
	return &Metrics{
		entriesSkipped: map[string]int{},
		analysisFailed: map[string]int{},
		stages:         map[string]time.Duration{},
		startedAt:      time.Now(),
	}
}

func (m *Metrics) RecordCollection(sourcesOK, sourcesFailed, articles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourcesOK += sourcesOK
	m.sourcesFailed += sourcesFailed
	m.articlesCollected += articles
}

func (m *Metrics) IncrementSkipped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entriesSkipped[reason]++
}

func (m *Metrics) RecordAnalyzed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzed += n
}

func (m *Metrics) IncrementAnalysisFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisFailed[reason]++
}

func (m *Metrics) RecordSelected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = n
}

func (m *Metrics) RecordSaved(saved, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved += saved
	m.saveFailures += failed
}

// RecordStage stores how long a named stage took.
func (m *Metrics) RecordStage(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[name] += d
}

// SetError records the error that ended the run.
func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
}

// Snapshot is a copy of the counters at one point in time.
type Snapshot struct {
	SourcesOK         int
	SourcesFailed     int
	ArticlesCollected int
	EntriesSkipped    map[string]int
	Analyzed          int
	AnalysisFailed    map[string]int
	Selected          int
	Saved             int
	SaveFailures      int
	Stages            map[string]time.Duration
	Elapsed           time.Duration
	LastError         string
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		SourcesOK:         m.sourcesOK,
		SourcesFailed:     m.sourcesFailed,
		ArticlesCollected: m.articlesCollected,
		EntriesSkipped:    copyCounts(m.entriesSkipped),
		Analyzed:          m.analyzed,
		AnalysisFailed:    copyCounts(m.analysisFailed),
		Selected:          m.selected,
		Saved:             m.saved,
		SaveFailures:      m.saveFailures,
		Stages:            copyDurations(m.stages),
		Elapsed:           time.Since(m.startedAt),
		LastError:         m.lastError,
	}
}

// FailedAnalyses sums analysis failures over every reason.
func (s Snapshot) FailedAnalyses() int {
	total := 0
	for _, n := range s.AnalysisFailed {
		total += n
	}
	return total
}

// LogArgs flattens the snapshot into slog key/value pairs.
func (s Snapshot) LogArgs() []any {
	args := []any{
		"sources_ok", s.SourcesOK,
		"sources_failed", s.SourcesFailed,
		"collected", s.ArticlesCollected,
		"analyzed", s.Analyzed,
		"analysis_failed", s.FailedAnalyses(),
		"selected", s.Selected,
		"saved", s.Saved,
		"save_failures", s.SaveFailures,
		"duration", s.Elapsed.Round(time.Millisecond),
	}
	if s.LastError != "" {
		args = append(args, "error", s.LastError)
	}
	for _, k := range sortedKeys(s.AnalysisFailed) {
		args = append(args, "failed_"+k, s.AnalysisFailed[k])
	}
	for _, k := range sortedKeys(s.EntriesSkipped) {
		args = append(args, "skipped_"+k, s.EntriesSkipped[k])
	}
	return args
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyDurations(in map[string]time.Duration) map[string]time.Duration {
	out := make(map[string]time.Duration, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
