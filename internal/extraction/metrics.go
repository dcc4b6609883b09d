package extraction

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Health score weights.
const (
	healthLengthDivisor   = 100.0
	healthMaxLength       = 30.0
	healthConfidence      = 20.0
	healthMaxSuccessRatio = 15.0
	healthNoHistoryBonus  = 10.0
	healthMax             = 100.0

	// EmergencyHealthScore is the fixed health of an emergency result.
	EmergencyHealthScore = 10.0

	// EmergencyConfidence is the fixed confidence of an emergency result.
	EmergencyConfidence = 0.1
)

// timeBonuses maps a run's duration, as a multiple of the running average,
// to its efficiency bonus. The first step whose factor is not exceeded wins.
var timeBonuses = []struct {
	factor float64
	bonus  float64
}{
	{0.5, 20},
	{1.0, 15},
	{1.5, 10},
	{3.0, 5},
}

// methodBonus rewards the method that produced the final text.
var methodBonus = map[string]float64{
	StrategyDirectText.String():   12,
	StrategyDedicatedOCR.String(): 18,
	StrategyRenderedA.String():    15,
	StrategyRenderedB.String():    14,
	MethodEmergency:               0,
}

// RunSummary is what the collector needs to know about a finished run.
type RunSummary struct {
	TextLength int
	Confidence float64
	Duration   time.Duration
	Attempts   []Attempt
	Method     string
	Emergency  bool
}

// HealthScore computes a 0-100 score for one run given the running average
// processing time (zero when no run has finished yet).
func HealthScore(run RunSummary, average time.Duration) float64 {
	if run.Emergency {
		return EmergencyHealthScore
	}

	score := math.Min(float64(run.TextLength)/healthLengthDivisor, healthMaxLength)
	score += run.Confidence * healthConfidence
	score += timeBonus(run.Duration, average)

	if len(run.Attempts) > 0 {
		succeeded := 0
		for _, a := range run.Attempts {
			if a.Success {
				succeeded++
			}
		}
		ratio := float64(succeeded) / float64(len(run.Attempts))
		score += math.Min(ratio*healthMaxSuccessRatio, healthMaxSuccessRatio)
	}

	score += methodBonus[run.Method]
	return math.Max(0, math.Min(score, healthMax))
}

func timeBonus(d, average time.Duration) float64 {
	if average <= 0 {
		return healthNoHistoryBonus
	}
	factor := float64(d) / float64(average)
	for _, step := range timeBonuses {
		if factor <= step.factor {
			return step.bonus
		}
	}
	return 0
}

// StrategyStats are the process-wide counters for one strategy.
type StrategyStats struct {
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// Snapshot is a copy of the collector's statistics.
type Snapshot struct {
	Documents          int                      `json:"documents"`
	Successes          int                      `json:"successes"`
	Emergencies        int                      `json:"emergencies"`
	AverageTime        time.Duration            `json:"average_time"`
	AverageHealthScore float64                  `json:"average_health_score"`
	Strategies         map[string]StrategyStats `json:"strategies"`
}

// StrategyNames returns the strategy keys in sorted order.
func (s Snapshot) StrategyNames() []string {
	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetricsCollector keeps process-wide extraction statistics. Create one at
// process start and share it between pipelines; it is safe for concurrent use.
type MetricsCollector struct {
	mu          sync.Mutex
	documents   int
	successes   int
	emergencies int
	avgTime     time.Duration
	totalHealth float64
	attempts    map[Strategy]int
	succeeded   map[Strategy]int
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		attempts:  make(map[Strategy]int),
		succeeded: make(map[Strategy]int),
	}
}

// Finish scores a completed run against the average of earlier runs, then
// folds the run into the statistics. It returns the run's health score.
func (m *MetricsCollector) Finish(run RunSummary) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := HealthScore(run, m.avgTime)

	m.documents++
	if run.Emergency {
		m.emergencies++
	} else {
		m.successes++
	}
	m.avgTime += (run.Duration - m.avgTime) / time.Duration(m.documents)
	m.totalHealth += health

	for _, a := range run.Attempts {
		m.attempts[a.Method]++
		if a.Success {
			m.succeeded[a.Method]++
		}
	}
	return health
}

// AverageTime returns the running average processing time.
func (m *MetricsCollector) AverageTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avgTime
}

// Snapshot returns a copy of the current statistics.
func (m *MetricsCollector) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Documents:   m.documents,
		Successes:   m.successes,
		Emergencies: m.emergencies,
		AverageTime: m.avgTime,
		Strategies:  make(map[string]StrategyStats, len(m.attempts)),
	}
	if m.documents > 0 {
		snap.AverageHealthScore = m.totalHealth / float64(m.documents)
	}
	for s, n := range m.attempts {
		stats := StrategyStats{Attempts: n, Successes: m.succeeded[s]}
		if n > 0 {
			stats.SuccessRate = float64(stats.Successes) / float64(n)
		}
		snap.Strategies[s.String()] = stats
	}
	return snap
}
