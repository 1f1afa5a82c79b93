// Package event decodes inbound trigger events and validates their structure.
package event

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/modelgate/modelgate/internal/controlplane"
)

// StructuralError indicates a malformed event missing a required field.
// These are fatal: no side effects are attempted for a structurally invalid
// event.
type StructuralError struct {
	Field string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("event missing required field: %s", e.Field)
}

// UploadEvent is an object-upload trigger carrying the storage location.
type UploadEvent struct {
	Bucket string
	Key    string
}

// uploadEnvelope covers the two upload event shapes the pipeline receives:
// direct storage notifications ("Records") and event-bus notifications
// ("detail").
type uploadEnvelope struct {
	Records []struct {
		EventSource string `json:"eventSource"`
		S3          struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
	Detail *struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
}

// ParseUploadEvent decodes an object-upload trigger event. Object keys in
// direct storage notifications arrive URL-encoded and are unescaped here.
func ParseUploadEvent(raw []byte) (*UploadEvent, error) {
	var envelope uploadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding upload event: %w", err)
	}

	if len(envelope.Records) > 0 {
		record := envelope.Records[0]
		if record.S3.Bucket.Name == "" {
			return nil, &StructuralError{Field: "Records[0].s3.bucket.name"}
		}
		if record.S3.Object.Key == "" {
			return nil, &StructuralError{Field: "Records[0].s3.object.key"}
		}

		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("unescaping object key: %w", err)
		}

		return &UploadEvent{Bucket: record.S3.Bucket.Name, Key: key}, nil
	}

	if envelope.Detail != nil {
		if envelope.Detail.Bucket.Name == "" {
			return nil, &StructuralError{Field: "detail.bucket.name"}
		}
		if envelope.Detail.Object.Key == "" {
			return nil, &StructuralError{Field: "detail.object.key"}
		}

		return &UploadEvent{
			Bucket: envelope.Detail.Bucket.Name,
			Key:    envelope.Detail.Object.Key,
		}, nil
	}

	return nil, &StructuralError{Field: "Records"}
}

// TrainingEvent is a training-job state change trigger.
type TrainingEvent struct {
	JobName       string
	Status        controlplane.JobStatus
	ArtifactURI   string
	FailureReason string
}

type trainingEnvelope struct {
	Detail *struct {
		TrainingJobName   string `json:"TrainingJobName"`
		TrainingJobStatus string `json:"TrainingJobStatus"`
		ModelArtifacts    struct {
			S3ModelArtifacts string `json:"S3ModelArtifacts"`
		} `json:"ModelArtifacts"`
		FailureReason string `json:"FailureReason"`
	} `json:"detail"`
}

// ParseTrainingEvent decodes a training-job state change event. The artifact
// location is required only for completed jobs.
func ParseTrainingEvent(raw []byte) (*TrainingEvent, error) {
	var envelope trainingEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding training event: %w", err)
	}

	if envelope.Detail == nil {
		return nil, &StructuralError{Field: "detail"}
	}
	if envelope.Detail.TrainingJobName == "" {
		return nil, &StructuralError{Field: "detail.TrainingJobName"}
	}
	if envelope.Detail.TrainingJobStatus == "" {
		return nil, &StructuralError{Field: "detail.TrainingJobStatus"}
	}

	ev := &TrainingEvent{
		JobName:       envelope.Detail.TrainingJobName,
		Status:        controlplane.JobStatus(envelope.Detail.TrainingJobStatus),
		ArtifactURI:   envelope.Detail.ModelArtifacts.S3ModelArtifacts,
		FailureReason: envelope.Detail.FailureReason,
	}

	if ev.Status == controlplane.JobCompleted && ev.ArtifactURI == "" {
		return nil, &StructuralError{Field: "detail.ModelArtifacts.S3ModelArtifacts"}
	}

	return ev, nil
}
