package notify

import (
	"fmt"
	"strings"

	"github.com/modelgate/modelgate/internal/approval"
	"github.com/modelgate/modelgate/internal/deploy"
	"github.com/modelgate/modelgate/internal/evaluation"
)

// Notification subjects. Each pipeline outcome has a deterministic,
// distinguishable subject line.
const (
	SubjectEvaluationPassed  = "MLOps Pipeline - Model Evaluation SUCCESS"
	SubjectEvaluationFailed  = "MLOps Pipeline - Model Evaluation FAILED"
	SubjectTrainingFailed    = "MLOps Pipeline - Training FAILED"
	SubjectDeploySucceeded   = "Model Deployment Successful"
	SubjectDeployValidation  = "Model Deployment Failed - Validation Error"
	SubjectDeployHealthCheck = "Model Deployment Failed - Health Check"
	SubjectDeploySystemError = "Model Deployment Failed - System Error"
)

// EvaluationSubject returns the subject line for an evaluation outcome.
func EvaluationSubject(approved bool) string {
	if approved {
		return SubjectEvaluationPassed
	}

	return SubjectEvaluationFailed
}

// EvaluationBody formats the evaluation and approval outcome for a completed
// training job, including per-metric detail lines.
func EvaluationBody(jobName string, report *evaluation.Report, decision *approval.Decision) string {
	var b strings.Builder

	status := "FAILED"
	if decision.Approved {
		status = "SUCCESS"
	}

	fmt.Fprintf(&b, "MLOps Model Evaluation - %s\n\n", status)
	fmt.Fprintf(&b, "Training Job: %s\n", jobName)
	fmt.Fprintf(&b, "Status: Training completed successfully\n\n")

	fmt.Fprintf(&b, "Model Evaluation:\n")
	fmt.Fprintf(&b, "- Passed: %s\n", yesNo(report.Passed))
	fmt.Fprintf(&b, "- Checks: %d/%d\n\n", report.Summary.PassedChecks, report.Summary.TotalChecks)

	fmt.Fprintf(&b, "Model Approval:\n")
	fmt.Fprintf(&b, "- Approved: %s\n", yesNo(decision.Approved))
	fmt.Fprintf(&b, "- Message: %s\n", decision.Message)

	if decision.Approved {
		fmt.Fprintf(&b, "\nApproved Model Path: %s\n", decision.ApprovedPath)
		fmt.Fprintf(&b, "\nModel is ready for deployment.\n")
	} else {
		if len(decision.FailedMetrics) > 0 {
			fmt.Fprintf(&b, "\nFailed Metrics: %s\n", strings.Join(decision.FailedMetrics, ", "))
		}
		if decision.Err != "" {
			fmt.Fprintf(&b, "\nError: %s\n", decision.Err)
		}
	}

	fmt.Fprintf(&b, "\nDetailed Results:\n")
	for _, name := range report.MetricNames() {
		result := report.Results[name]

		mark := "✗"
		if result.Passed {
			mark = "✓"
		}

		value := "N/A"
		if result.Value != nil {
			value = fmt.Sprintf("%.4f", *result.Value)
		}

		fmt.Fprintf(&b, "%s %s: %s (threshold: %.4f)\n", mark, name, value, result.Threshold)
	}

	return b.String()
}

// TrainingFailureBody formats a training job failure report.
func TrainingFailureBody(jobName, failureReason string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MLOps Training Pipeline - TRAINING FAILED\n\n")
	fmt.Fprintf(&b, "Training Job: %s\n", jobName)
	fmt.Fprintf(&b, "Status: Training job failed\n\n")
	fmt.Fprintf(&b, "Failure Reason: %s\n\n", failureReason)
	fmt.Fprintf(&b, "Please check the training job logs for detailed error information.\n")

	return b.String()
}

// DeploymentSubject returns the subject line for a deployment outcome.
func DeploymentSubject(outcome deploy.Outcome) string {
	switch outcome {
	case deploy.OutcomeSucceeded:
		return SubjectDeploySucceeded
	case deploy.OutcomeValidationFailed:
		return SubjectDeployValidation
	case deploy.OutcomeRolledBack, deploy.OutcomeFailedNoRollback:
		return SubjectDeployHealthCheck
	default:
		return SubjectDeploySystemError
	}
}

// DeploymentBody formats the outcome of a deployment attempt.
func DeploymentBody(result *deploy.Result) string {
	var b strings.Builder

	switch result.Outcome {
	case deploy.OutcomeSucceeded:
		fmt.Fprintf(&b, "Model %s successfully deployed to endpoint %s\n", result.ModelName, result.EndpointName)
		fmt.Fprintf(&b, "Model URI: %s\n", result.ModelURI)
		fmt.Fprintf(&b, "Endpoint Config: %s\n", result.ConfigName)
	case deploy.OutcomeValidationFailed:
		fmt.Fprintf(&b, "Model artifact validation failed for %s. Deployment aborted.\n", result.ModelURI)
		fmt.Fprintf(&b, "Reason: %s\n", result.Detail)
	case deploy.OutcomeRolledBack:
		fmt.Fprintf(&b, "Endpoint %s failed health check. Rolled back to prior configuration.\n", result.EndpointName)
		fmt.Fprintf(&b, "Reason: %s\n", result.Detail)
	case deploy.OutcomeFailedNoRollback:
		fmt.Fprintf(&b, "Endpoint %s failed health check. No prior configuration to roll back to.\n", result.EndpointName)
		fmt.Fprintf(&b, "Reason: %s\n", result.Detail)
	default:
		fmt.Fprintf(&b, "Deployment of %s to endpoint %s ended with outcome %s.\n",
			result.ModelURI, result.EndpointName, result.Outcome)
	}

	return b.String()
}

// DeploymentErrorBody formats a fatal infrastructure failure during a
// deployment attempt.
func DeploymentErrorBody(endpointName string, err error) string {
	return fmt.Sprintf("Deployment to endpoint %s encountered an error: %s\n", endpointName, err)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}

	return "No"
}
