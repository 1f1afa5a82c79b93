package training

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultTemplate(t *testing.T) {
	t.Parallel()

	tmpl := DefaultTemplate()

	require.Equal(t, "ml.g4dn.xlarge", tmpl.InstanceType)
	require.Equal(t, int32(1), tmpl.InstanceCount)
	require.Equal(t, int32(30), tmpl.VolumeSizeGB)
	require.Equal(t, int32(3600), tmpl.MaxRuntimeSeconds)
	require.Equal(t, "text/csv", tmpl.ContentType)
}

func TestLoadTemplateAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
image: registry/training:latest
instance_type: ml.p3.2xlarge
hyperparameters:
  epochs: "20"
  learning_rate: "0.01"
tags:
  Team: research
`), 0o600))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)

	require.Equal(t, "registry/training:latest", tmpl.Image)
	require.Equal(t, "ml.p3.2xlarge", tmpl.InstanceType)
	require.Equal(t, int32(1), tmpl.InstanceCount, "unset fields fall back to defaults")
	require.Equal(t, int32(30), tmpl.VolumeSizeGB)
	require.Equal(t, map[string]string{"epochs": "20", "learning_rate": "0.01"}, tmpl.Hyperparameters)
}

func TestLoadTemplateMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTemplate(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadTemplateMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image: [unclosed"), 0o600))

	_, err := LoadTemplate(path)
	require.Error(t, err)
}

func TestJobSpec(t *testing.T) {
	t.Parallel()

	tmpl := DefaultTemplate()
	tmpl.Image = "registry/training:latest"
	tmpl.Tags = map[string]string{"Team": "research"}

	now := time.Date(2026, 8, 23, 9, 15, 30, 0, time.UTC)

	spec := tmpl.JobSpec(now, "arn:role", "s3://bucket/data/train/", "s3://bucket/models/raw/")

	require.Equal(t, "training-job-20260823-091530", spec.Name)
	require.Equal(t, "arn:role", spec.RoleARN)
	require.Equal(t, "registry/training:latest", spec.Image)
	require.Equal(t, "s3://bucket/data/train/", spec.InputDataURI)
	require.Equal(t, "s3://bucket/models/raw/", spec.OutputPathURI)
	require.Equal(t, time.Hour, spec.MaxRuntime)

	require.Equal(t, "modelgate", spec.Tags["Project"])
	require.Equal(t, "event-driven", spec.Tags["TriggerSource"])
	require.Equal(t, "s3://bucket/data/train/", spec.Tags["DataSource"])
	require.Equal(t, "research", spec.Tags["Team"], "template tags are merged in")
}

func TestJobSpecTemplateTagsWin(t *testing.T) {
	t.Parallel()

	tmpl := DefaultTemplate()
	tmpl.Tags = map[string]string{"Project": "custom"}

	spec := tmpl.JobSpec(time.Now(), "arn:role", "s3://b/in/", "s3://b/out/")

	require.Equal(t, "custom", spec.Tags["Project"])
}
