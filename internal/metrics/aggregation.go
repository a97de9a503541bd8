package metrics

import (
	"sort"
	"time"
)

// TotalCost returns the total cost for metrics matching the filter.
func (q *Query) TotalCost(f Filter) float64 {
	var total float64
	for _, m := range q.List(f, 0) {
		total += m.CostUSD
	}
	return total
}

// TotalTokens returns the total tokens for metrics matching the filter.
func (q *Query) TotalTokens(f Filter) int64 {
	var total int64
	for _, m := range q.List(f, 0) {
		total += m.TotalTokens
	}
	return total
}

// TotalTime returns the total execution time for metrics matching the filter.
func (q *Query) TotalTime(f Filter) time.Duration {
	var total float64
	for _, m := range q.List(f, 0) {
		total += m.TotalSeconds
	}
	return time.Duration(total * float64(time.Second))
}

// Summary is a roll-up of metrics for a filter.
type Summary struct {
	Count          int           `json:"count"`
	TotalCostUSD   float64       `json:"total_cost_usd"`
	TotalTokens    int64         `json:"total_tokens"`
	TotalTime      time.Duration `json:"total_time"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	AvgCostUSD     float64       `json:"avg_cost_usd"`
	AvgTokens      float64       `json:"avg_tokens"`
	AvgTimeSeconds float64       `json:"avg_time_seconds"`
}

// GetSummary returns a summary of metrics matching the filter.
func (q *Query) GetSummary(f Filter) *Summary {
	metrics := q.List(f, 0)
	s := &Summary{Count: len(metrics)}
	for _, m := range metrics {
		s.TotalCostUSD += m.CostUSD
		s.TotalTokens += m.TotalTokens
		s.TotalTime += time.Duration(m.TotalSeconds * float64(time.Second))
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
	if s.Count > 0 {
		s.AvgCostUSD = s.TotalCostUSD / float64(s.Count)
		s.AvgTokens = float64(s.TotalTokens) / float64(s.Count)
		s.AvgTimeSeconds = s.TotalTime.Seconds() / float64(s.Count)
	}
	return s
}

// DetailedStats reports latency percentiles and token breakdowns.
type DetailedStats struct {
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`

	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`

	LatencyP50 float64 `json:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg"`
	LatencyMin float64 `json:"latency_min"`
	LatencyMax float64 `json:"latency_max"`

	TotalPromptTokens     int   `json:"total_prompt_tokens"`
	TotalCompletionTokens int   `json:"total_completion_tokens"`
	TotalReasoningTokens  int   `json:"total_reasoning_tokens"`
	TotalTokens           int64 `json:"total_tokens"`

	AvgPromptTokens     float64 `json:"avg_prompt_tokens"`
	AvgCompletionTokens float64 `json:"avg_completion_tokens"`
	AvgReasoningTokens  float64 `json:"avg_reasoning_tokens"`
	AvgTotalTokens      float64 `json:"avg_total_tokens"`
}

// GetDetailedStats returns detailed statistics for metrics matching f.
func (q *Query) GetDetailedStats(f Filter) *DetailedStats {
	return detailedStatsFor(q.List(f, 0))
}

// StageDetailedStats groups a book's metrics by stage and reports detailed
// statistics for each.
func (q *Query) StageDetailedStats(bookID string) map[string]*DetailedStats {
	byStage := make(map[string][]Metric)
	for _, m := range q.List(Filter{BookID: bookID}, 0) {
		if m.Stage == "" {
			continue
		}
		byStage[m.Stage] = append(byStage[m.Stage], m)
	}

	result := make(map[string]*DetailedStats, len(byStage))
	for stage, metrics := range byStage {
		result[stage] = detailedStatsFor(metrics)
	}
	return result
}

func detailedStatsFor(metrics []Metric) *DetailedStats {
	stats := &DetailedStats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	var latencies []float64
	for _, m := range metrics {
		stats.TotalCostUSD += m.CostUSD
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		stats.TotalPromptTokens += m.PromptTokens
		stats.TotalCompletionTokens += m.CompletionTokens
		stats.TotalReasoningTokens += m.ReasoningTokens
		stats.TotalTokens += m.TotalTokens
		if m.TotalSeconds > 0 {
			latencies = append(latencies, m.TotalSeconds)
		}
	}

	count := float64(stats.Count)
	stats.AvgCostUSD = stats.TotalCostUSD / count
	stats.AvgPromptTokens = float64(stats.TotalPromptTokens) / count
	stats.AvgCompletionTokens = float64(stats.TotalCompletionTokens) / count
	stats.AvgReasoningTokens = float64(stats.TotalReasoningTokens) / count
	stats.AvgTotalTokens = float64(stats.TotalTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		stats.LatencyMin = latencies[0]
		stats.LatencyMax = latencies[len(latencies)-1]

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))
		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
		stats.LatencyP99 = percentile(latencies, 99)
	}

	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
