package actions

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/event"
)

// Evaluate looks up a training job and runs the evaluation and approval
// workflow on its outcome.
func Evaluate(ctx context.Context, log logrus.FieldLogger, jobName string) error {
	rt, err := buildRuntime(ctx, log)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Printf("\n🔎 Looking up training job %s\n", jobName)

	desc, err := rt.control.DescribeJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("failed to describe training job: %w", err)
	}

	if !desc.Status.Terminal() {
		fmt.Printf("ℹ️  Training job is still %s, nothing to evaluate yet\n", desc.Status)
		return nil
	}

	outcome, err := rt.orchestrator.HandleTrainingCompletion(ctx, &event.TrainingEvent{
		JobName:       jobName,
		Status:        desc.Status,
		ArtifactURI:   desc.ArtifactURI,
		FailureReason: desc.FailureReason,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate training job: %w", err)
	}

	switch {
	case outcome.Skipped:
		fmt.Printf("⚠️  Training job ended %s, evaluation skipped\n", outcome.Status)
	case outcome.Decision.Approved:
		fmt.Printf("✅ Model approved: %s\n", outcome.Decision.ApprovedPath)
	default:
		fmt.Printf("❌ Model not approved: %s\n", outcome.Decision.Message)
	}

	return nil
}
