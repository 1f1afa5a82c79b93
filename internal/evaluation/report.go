// Package evaluation compares observed model metrics against configured
// quality thresholds and produces a structured pass/fail report.
package evaluation

import "sort"

// MetricSet maps metric names to observed values. Produced by the training
// process and immutable once read.
type MetricSet map[string]float64

// ThresholdSet maps metric names to minimum acceptable values.
type ThresholdSet map[string]float64

// Status classifies a single metric check.
type Status string

const (
	// StatusPass means the metric met its threshold.
	StatusPass Status = "pass"
	// StatusFail means the metric was present but below its threshold.
	StatusFail Status = "fail"
	// StatusMissing means the metric was absent from the metric set.
	// Missing is a first-class check state, not an error.
	StatusMissing Status = "missing"
)

// CheckResult is the outcome of one metric-threshold comparison.
type CheckResult struct {
	Status    Status
	Value     *float64 // nil when the metric is missing
	Threshold float64
	Passed    bool
}

// Summary aggregates check counts for a report.
type Summary struct {
	TotalChecks  int
	PassedChecks int
	FailedChecks int
	PassRate     float64
}

// Report is the result of evaluating a metric set against a threshold set.
// Passed is true iff every threshold metric is present and meets its minimum.
type Report struct {
	Passed  bool
	Results map[string]CheckResult
	Summary Summary
}

// MetricNames returns the checked metric names in lexicographic order.
func (r *Report) MetricNames() []string {
	names := make([]string, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// FailedMetrics returns the names of all failed or missing metrics in
// lexicographic order.
func (r *Report) FailedMetrics() []string {
	failed := make([]string, 0)
	for _, name := range r.MetricNames() {
		if !r.Results[name].Passed {
			failed = append(failed, name)
		}
	}

	return failed
}
