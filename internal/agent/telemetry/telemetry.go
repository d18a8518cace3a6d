package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hrdesk-ai/hrdesk/config"
)

// Telemetry provides in-process monitoring and cost tracking for agent runs.
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	mu          sync.RWMutex
}

// Metrics holds performance counters accumulated across runs.
type Metrics struct {
	// Run metrics
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	// Tool metrics
	ToolExecutions   map[string]int64
	ToolSuccesses    map[string]int64
	ToolSuccessRates map[string]float64
	ToolAverageTimes map[string]time.Duration

	// LLM metrics
	LLMRequests       map[string]int64
	LLMTokensUsed     map[string]int64
	LLMAverageLatency map[string]time.Duration
}

// CostTracker tracks generative-call spend across models and operations.
type CostTracker struct {
	DailyCosts     map[string]float64 // date -> cost
	OperationCosts map[string]float64 // operation -> cost
	ModelCosts     map[string]float64 // model -> cost

	TotalCost   float64
	TotalTokens int64
}

// RunEvent represents one complete question run through the orchestrator.
type RunEvent struct {
	ID         string
	Query      string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ToolsUsed  []string
	ModelsUsed []string
	Confidence float64
}

// ToolEvent represents a single capability execution.
type ToolEvent struct {
	ID        string
	Tool      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	Forced    bool
}

// LLMEvent represents one generative or embedding call.
type LLMEvent struct {
	ID           string
	Operation    string // planning, selection, reflection, synthesis, tools, embedding
	Model        string
	Duration     time.Duration
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	Success      bool
	Error        string
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(config config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: config,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			ToolExecutions:    make(map[string]int64),
			ToolSuccesses:     make(map[string]int64),
			ToolSuccessRates:  make(map[string]float64),
			ToolAverageTimes:  make(map[string]time.Duration),
			LLMRequests:       make(map[string]int64),
			LLMTokensUsed:     make(map[string]int64),
			LLMAverageLatency: make(map[string]time.Duration),
		},
		costTracker: &CostTracker{
			DailyCosts:     make(map[string]float64),
			OperationCosts: make(map[string]float64),
			ModelCosts:     make(map[string]float64),
		},
	}

	// Periodic logs can be disabled via config.
	if config.Enabled && config.PeriodicLogs {
		go t.startMetricsCollection()
		go t.startCostReporting()
	}

	return t
}

// RecordRunEvent records a complete run.
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	for _, model := range event.ModelsUsed {
		t.metrics.LLMRequests[model]++
	}

	t.costTracker.TotalCost += event.Cost
	t.costTracker.TotalTokens += event.TokensUsed

	t.logger.Printf("Run Event: ID=%s, Success=%t, Duration=%v, Cost=$%.4f, Tokens=%d, Confidence=%.2f",
		event.ID, event.Success, event.Duration, event.Cost, event.TokensUsed, event.Confidence)
}

// RecordToolEvent records a capability execution.
func (t *Telemetry) RecordToolEvent(ctx context.Context, event ToolEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.ToolExecutions[event.Tool]++
	if event.Success {
		t.metrics.ToolSuccesses[event.Tool]++
	}
	executions := t.metrics.ToolExecutions[event.Tool]
	t.metrics.ToolSuccessRates[event.Tool] = float64(t.metrics.ToolSuccesses[event.Tool]) / float64(executions)

	currentAvg := t.metrics.ToolAverageTimes[event.Tool]
	if executions == 1 {
		t.metrics.ToolAverageTimes[event.Tool] = event.Duration
	} else {
		total := currentAvg * time.Duration(executions-1)
		t.metrics.ToolAverageTimes[event.Tool] = (total + event.Duration) / time.Duration(executions)
	}

	t.logger.Printf("Tool Event: Tool=%s, Success=%t, Duration=%v, Forced=%t",
		event.Tool, event.Success, event.Duration, event.Forced)
}

// RecordLLMEvent records a generative or embedding call.
func (t *Telemetry) RecordLLMEvent(ctx context.Context, event LLMEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.LLMRequests[event.Model]++
	t.metrics.LLMTokensUsed[event.Model] += event.InputTokens + event.OutputTokens

	requests := t.metrics.LLMRequests[event.Model]
	currentAvg := t.metrics.LLMAverageLatency[event.Model]
	if requests == 1 {
		t.metrics.LLMAverageLatency[event.Model] = event.Duration
	} else {
		total := currentAvg * time.Duration(requests-1)
		t.metrics.LLMAverageLatency[event.Model] = (total + event.Duration) / time.Duration(requests)
	}

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.InputTokens + event.OutputTokens
		t.costTracker.ModelCosts[event.Model] += event.Cost
		t.costTracker.OperationCosts[event.Operation] += event.Cost
		t.costTracker.DailyCosts[time.Now().Format("2006-01-02")] += event.Cost
	}

	t.logger.Printf("LLM Event: Operation=%s, Model=%s, Success=%t, Duration=%v, Cost=$%.4f",
		event.Operation, event.Model, event.Success, event.Duration, event.Cost)
}

// GetMetrics returns a copy of the current metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metrics := *t.metrics
	metrics.ToolExecutions = make(map[string]int64)
	metrics.ToolSuccesses = make(map[string]int64)
	metrics.ToolSuccessRates = make(map[string]float64)
	metrics.ToolAverageTimes = make(map[string]time.Duration)
	metrics.LLMRequests = make(map[string]int64)
	metrics.LLMTokensUsed = make(map[string]int64)
	metrics.LLMAverageLatency = make(map[string]time.Duration)

	for k, v := range t.metrics.ToolExecutions {
		metrics.ToolExecutions[k] = v
	}
	for k, v := range t.metrics.ToolSuccesses {
		metrics.ToolSuccesses[k] = v
	}
	for k, v := range t.metrics.ToolSuccessRates {
		metrics.ToolSuccessRates[k] = v
	}
	for k, v := range t.metrics.ToolAverageTimes {
		metrics.ToolAverageTimes[k] = v
	}
	for k, v := range t.metrics.LLMRequests {
		metrics.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMTokensUsed {
		metrics.LLMTokensUsed[k] = v
	}
	for k, v := range t.metrics.LLMAverageLatency {
		metrics.LLMAverageLatency[k] = v
	}

	return metrics
}

// GetCostSummary returns a copy of the current cost tracking state.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := CostSummary{
		TotalCost:      t.costTracker.TotalCost,
		TotalTokens:    t.costTracker.TotalTokens,
		DailyCosts:     make(map[string]float64),
		ModelCosts:     make(map[string]float64),
		OperationCosts: make(map[string]float64),
	}

	for k, v := range t.costTracker.DailyCosts {
		summary.DailyCosts[k] = v
	}
	for k, v := range t.costTracker.ModelCosts {
		summary.ModelCosts[k] = v
	}
	for k, v := range t.costTracker.OperationCosts {
		summary.OperationCosts[k] = v
	}

	return summary
}

// CostSummary provides a point-in-time view of accumulated spend.
type CostSummary struct {
	TotalCost      float64
	TotalTokens    int64
	DailyCosts     map[string]float64
	ModelCosts     map[string]float64
	OperationCosts map[string]float64
}

func (t *Telemetry) startMetricsCollection() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		metrics := t.GetMetrics()
		costs := t.GetCostSummary()

		t.logger.Printf("Metrics Snapshot: Runs=%d/%d, AvgTime=%v, TotalCost=$%.4f, TotalTokens=%d",
			metrics.SuccessfulRuns, metrics.TotalRuns,
			metrics.AverageRunTime, costs.TotalCost, costs.TotalTokens)
	}
}

func (t *Telemetry) startCostReporting() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		costs := t.GetCostSummary()

		t.logger.Printf("Cost Report: Total=$%.4f, Tokens=%d", costs.TotalCost, costs.TotalTokens)

		for model, cost := range costs.ModelCosts {
			t.logger.Printf("  Model %s: $%.4f", model, cost)
		}
		for op, cost := range costs.OperationCosts {
			t.logger.Printf("  Operation %s: $%.4f", op, cost)
		}
	}
}

// Shutdown logs a final report.
func (t *Telemetry) Shutdown() {
	t.logger.Println("Shutting down telemetry...")

	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	t.logger.Printf("Final Report:")
	t.logger.Printf("  Total Runs: %d", metrics.TotalRuns)
	if metrics.TotalRuns > 0 {
		t.logger.Printf("  Success Rate: %.2f%%", float64(metrics.SuccessfulRuns)/float64(metrics.TotalRuns)*100)
	}
	t.logger.Printf("  Average Run Time: %v", metrics.AverageRunTime)
	t.logger.Printf("  Total Cost: $%.4f", costs.TotalCost)
	t.logger.Printf("  Total Tokens: %d", costs.TotalTokens)
}

// GetPerformanceReport renders a human-readable summary of all counters.
func (t *Telemetry) GetPerformanceReport() string {
	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	successPct, failedPct := 0.0, 0.0
	if metrics.TotalRuns > 0 {
		successPct = float64(metrics.SuccessfulRuns) / float64(metrics.TotalRuns) * 100
		failedPct = float64(metrics.FailedRuns) / float64(metrics.TotalRuns) * 100
	}

	report := fmt.Sprintf(`
=== PERFORMANCE REPORT ===
Overall Metrics:
  Total Runs: %d
  Successful: %d (%.2f%%)
  Failed: %d (%.2f%%)
  Average Run Time: %v
  Total Cost: $%.4f
  Total Tokens: %d

Tool Performance:
`, metrics.TotalRuns, metrics.SuccessfulRuns, successPct,
		metrics.FailedRuns, failedPct,
		metrics.AverageRunTime, costs.TotalCost, costs.TotalTokens)

	for tool, executions := range metrics.ToolExecutions {
		successRate := metrics.ToolSuccessRates[tool]
		avgTime := metrics.ToolAverageTimes[tool]
		report += fmt.Sprintf("  %s: %d executions, %.2f%% success, %v avg time\n",
			tool, executions, successRate*100, avgTime)
	}

	report += "\nLLM Usage:\n"
	for model, requests := range metrics.LLMRequests {
		tokens := metrics.LLMTokensUsed[model]
		cost := costs.ModelCosts[model]
		report += fmt.Sprintf("  %s: %d requests, %d tokens, $%.4f\n",
			model, requests, tokens, cost)
	}

	return report
}
