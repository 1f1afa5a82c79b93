// Package training builds training-job submissions from a YAML template and
// the triggering upload event.
package training

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modelgate/modelgate/internal/controlplane"
)

// Template defaults, matching the managed training setup this pipeline drives.
const (
	defaultInstanceType      = "ml.g4dn.xlarge"
	defaultInstanceCount     = 1
	defaultVolumeSizeGB      = 30
	defaultMaxRuntimeSeconds = 3600
	defaultContentType       = "text/csv"
)

// jobNameTimeFormat stamps job names for uniqueness across submissions.
const jobNameTimeFormat = "20060102-150405"

// Template describes the fixed parameters of a training job. Fields left
// empty in the YAML document fall back to the defaults above.
type Template struct {
	Image             string            `yaml:"image"`
	InstanceType      string            `yaml:"instance_type"`
	InstanceCount     int32             `yaml:"instance_count"`
	VolumeSizeGB      int32             `yaml:"volume_size_gb"`
	MaxRuntimeSeconds int32             `yaml:"max_runtime_seconds"`
	ContentType       string            `yaml:"content_type"`
	Hyperparameters   map[string]string `yaml:"hyperparameters"`
	Tags              map[string]string `yaml:"tags"`
}

// DefaultTemplate returns a template with all defaults applied.
func DefaultTemplate() *Template {
	t := &Template{}
	t.applyDefaults()

	return t
}

// LoadTemplate reads a training template from a YAML file.
func LoadTemplate(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading training template: %w", err)
	}

	var t Template
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing training template: %w", err)
	}

	t.applyDefaults()

	return &t, nil
}

func (t *Template) applyDefaults() {
	if t.InstanceType == "" {
		t.InstanceType = defaultInstanceType
	}
	if t.InstanceCount <= 0 {
		t.InstanceCount = defaultInstanceCount
	}
	if t.VolumeSizeGB <= 0 {
		t.VolumeSizeGB = defaultVolumeSizeGB
	}
	if t.MaxRuntimeSeconds <= 0 {
		t.MaxRuntimeSeconds = defaultMaxRuntimeSeconds
	}
	if t.ContentType == "" {
		t.ContentType = defaultContentType
	}
}

// JobSpec materializes a job submission for the given data and output
// locations. The job name embeds a timestamp from now for uniqueness.
func (t *Template) JobSpec(now time.Time, roleARN, inputURI, outputURI string) controlplane.JobSpec {
	tags := map[string]string{
		"Project":       "modelgate",
		"TriggerSource": "event-driven",
		"DataSource":    inputURI,
	}
	for k, v := range t.Tags {
		tags[k] = v
	}

	return controlplane.JobSpec{
		Name:            fmt.Sprintf("training-job-%s", now.UTC().Format(jobNameTimeFormat)),
		RoleARN:         roleARN,
		Image:           t.Image,
		InputDataURI:    inputURI,
		OutputPathURI:   outputURI,
		ContentType:     t.ContentType,
		InstanceType:    t.InstanceType,
		InstanceCount:   t.InstanceCount,
		VolumeSizeGB:    t.VolumeSizeGB,
		MaxRuntime:      time.Duration(t.MaxRuntimeSeconds) * time.Second,
		Hyperparameters: t.Hyperparameters,
		Tags:            tags,
	}
}
