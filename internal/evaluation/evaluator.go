package evaluation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// ErrNonFiniteMetric indicates a NaN or infinite value in the inputs, which is
// a caller contract violation rather than an evaluation failure.
var ErrNonFiniteMetric = errors.New("metric value is not a finite number")

// Evaluator compares metric sets against threshold sets. It is stateless and
// has no side effects beyond logging.
type Evaluator struct {
	log logrus.FieldLogger
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(log logrus.FieldLogger) *Evaluator {
	return &Evaluator{
		log: log.WithField("component", "evaluator"),
	}
}

// Evaluate checks every threshold metric against the observed metrics.
// A metric absent from metrics is recorded as missing and fails the report.
// Comparison is non-strict: a value exactly equal to its threshold passes.
// An empty threshold set yields a passing report with zero checks.
func (e *Evaluator) Evaluate(metrics MetricSet, thresholds ThresholdSet) (*Report, error) {
	for name, value := range metrics {
		if !isFinite(value) {
			return nil, fmt.Errorf("metric %q: %w", name, ErrNonFiniteMetric)
		}
	}

	for name, value := range thresholds {
		if !isFinite(value) {
			return nil, fmt.Errorf("threshold %q: %w", name, ErrNonFiniteMetric)
		}
	}

	report := &Report{
		Passed:  true,
		Results: make(map[string]CheckResult, len(thresholds)),
	}

	for name, threshold := range thresholds {
		value, ok := metrics[name]
		if !ok {
			e.log.WithField("metric", name).Warn("metric not found in model metrics")

			report.Results[name] = CheckResult{
				Status:    StatusMissing,
				Threshold: threshold,
			}
			report.Passed = false

			continue
		}

		passed := value >= threshold

		status := StatusPass
		if !passed {
			status = StatusFail
			report.Passed = false
		}

		e.log.WithFields(logrus.Fields{
			"metric":    name,
			"value":     value,
			"threshold": threshold,
			"passed":    passed,
		}).Debug("metric checked")

		v := value
		report.Results[name] = CheckResult{
			Status:    status,
			Value:     &v,
			Threshold: threshold,
			Passed:    passed,
		}
	}

	report.Summary = summarize(report.Results)

	e.log.WithFields(logrus.Fields{
		"total":  report.Summary.TotalChecks,
		"passed": report.Summary.PassedChecks,
	}).Info("evaluation complete")

	return report, nil
}

func summarize(results map[string]CheckResult) Summary {
	summary := Summary{TotalChecks: len(results)}
	for _, result := range results {
		if result.Passed {
			summary.PassedChecks++
		}
	}

	summary.FailedChecks = summary.TotalChecks - summary.PassedChecks
	if summary.TotalChecks > 0 {
		summary.PassRate = float64(summary.PassedChecks) / float64(summary.TotalChecks)
	}

	return summary
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
