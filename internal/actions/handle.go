package actions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/event"
)

// Handle reads a raw pipeline event from a JSON file and dispatches it to the
// matching flow: training data uploads submit a job, approved model uploads
// deploy, training state changes evaluate.
func Handle(ctx context.Context, log logrus.FieldLogger, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}

	rt, err := buildRuntime(ctx, log)
	if err != nil {
		return err
	}
	defer rt.close()

	if upload, parseErr := event.ParseUploadEvent(raw); parseErr == nil {
		return handleUpload(ctx, rt, upload)
	}

	training, parseErr := event.ParseTrainingEvent(raw)
	if parseErr != nil {
		return fmt.Errorf("unrecognized event shape: %w", parseErr)
	}

	fmt.Printf("\n📨 Training state change for job %s (%s)\n", training.JobName, training.Status)

	outcome, err := rt.orchestrator.HandleTrainingCompletion(ctx, training)
	if err != nil {
		return fmt.Errorf("failed to handle training event: %w", err)
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

func handleUpload(ctx context.Context, rt *runtime, upload *event.UploadEvent) error {
	fmt.Printf("\n📨 Upload event for s3://%s/%s\n", upload.Bucket, upload.Key)

	if strings.HasPrefix(upload.Key, config.ApprovedModelPrefix) {
		result, err := rt.orchestrator.HandleModelUpload(ctx, upload)
		if err != nil {
			return fmt.Errorf("deployment failed: %w", err)
		}

		printDeployResult(result)
		return nil
	}

	submission, err := rt.orchestrator.HandleDataUpload(ctx, upload)
	if err != nil {
		return fmt.Errorf("failed to submit training job: %w", err)
	}

	if submission.Ignored {
		fmt.Println("ℹ️  Key matches no pipeline path, event ignored")
		return nil
	}

	fmt.Printf("✅ Training job submitted: %s\n", submission.JobName)
	return nil
}
