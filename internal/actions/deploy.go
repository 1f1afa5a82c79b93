package actions

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/deploy"
	"github.com/modelgate/modelgate/internal/event"
)

// Deploy runs one deployment attempt for the approved model artifact at the
// given object key.
func Deploy(ctx context.Context, log logrus.FieldLogger, key string) error {
	rt, err := buildRuntime(ctx, log)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Printf("\n🚀 Deploying s3://%s/%s to endpoint %s\n", rt.cfg.Bucket, key, rt.cfg.EndpointName)

	result, err := rt.orchestrator.HandleModelUpload(ctx, &event.UploadEvent{
		Bucket: rt.cfg.Bucket,
		Key:    key,
	})
	if err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}

	printDeployResult(result)
	return nil
}

func printDeployResult(result *deploy.Result) {
	switch result.Outcome {
	case deploy.OutcomeSucceeded:
		fmt.Printf("✅ Endpoint %s is in service with model %s\n", result.EndpointName, result.ModelName)
	case deploy.OutcomeIgnored:
		fmt.Println("ℹ️  Key is outside the approved model path, nothing deployed")
	case deploy.OutcomeSkipped:
		fmt.Println("⚠️  Endpoint has an operation in flight, attempt skipped")
	case deploy.OutcomeValidationFailed:
		fmt.Printf("❌ Model artifact failed validation: %s\n", result.Detail)
	case deploy.OutcomeRolledBack:
		fmt.Printf("❌ Health check failed, rolled back: %s\n", result.Detail)
	case deploy.OutcomeFailedNoRollback:
		fmt.Printf("❌ Health check failed, no prior config to roll back to: %s\n", result.Detail)
	}
}
