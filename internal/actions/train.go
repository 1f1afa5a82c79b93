package actions

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/event"
)

// Train submits a training job as if the given object key had just been
// uploaded to the training data path.
func Train(ctx context.Context, log logrus.FieldLogger, key string) error {
	rt, err := buildRuntime(ctx, log)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Printf("\n🚀 Submitting training job for s3://%s/%s\n", rt.cfg.Bucket, key)

	submission, err := rt.orchestrator.HandleDataUpload(ctx, &event.UploadEvent{
		Bucket: rt.cfg.Bucket,
		Key:    key,
	})
	if err != nil {
		return fmt.Errorf("failed to submit training job: %w", err)
	}

	if submission.Ignored {
		fmt.Println("ℹ️  Key is outside the training data path, nothing submitted")
		return nil
	}

	fmt.Printf("✅ Training job submitted: %s\n", submission.JobName)
	return nil
}
