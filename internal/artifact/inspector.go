// Package artifact inspects model archives produced by training jobs.
package artifact

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/evaluation"
)

// MetricsFileName is the well-known metrics document inside a model archive.
// The training script must write it to the model output directory.
const MetricsFileName = "metrics.json"

var (
	// ErrBadArchive indicates the artifact is not a readable gzip tar.
	ErrBadArchive = errors.New("model archive is not a valid gzip tar")
	// ErrMetricsMissing indicates no metrics file was found inside the archive.
	ErrMetricsMissing = errors.New("metrics file not found in model archive")
	// ErrEmptyArchive indicates the archive contains no entries.
	ErrEmptyArchive = errors.New("model archive is empty")
)

// Inspector extracts and validates model archives.
type Inspector struct {
	log logrus.FieldLogger
}

// NewInspector creates a new artifact inspector.
func NewInspector(log logrus.FieldLogger) *Inspector {
	return &Inspector{
		log: log.WithField("component", "artifact_inspector"),
	}
}

// ExtractMetrics decompresses the archive, locates the metrics file at the
// archive root or first directory level, and parses it into a metric set.
func (i *Inspector) ExtractMetrics(archive []byte) (evaluation.MetricSet, error) {
	var raw []byte

	err := i.walk(archive, func(hdr *tar.Header, r io.Reader) (bool, error) {
		if !isMetricsEntry(hdr) {
			return false, nil
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}

		raw = data

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if raw == nil {
		return nil, ErrMetricsMissing
	}

	var metrics evaluation.MetricSet
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrBadArchive, MetricsFileName, err)
	}

	i.log.WithField("metrics", len(metrics)).Debug("extracted metrics from model archive")

	return metrics, nil
}

// Validate checks that the archive is a well-formed, non-empty gzip tar.
// It does not require a metrics file: this is a deployment-readiness gate,
// not a quality gate.
func (i *Inspector) Validate(archive []byte) error {
	entries := 0

	err := i.walk(archive, func(hdr *tar.Header, _ io.Reader) (bool, error) {
		entries++
		return false, nil
	})
	if err != nil {
		return err
	}

	if entries == 0 {
		return ErrEmptyArchive
	}

	i.log.WithField("entries", entries).Debug("model archive validated")

	return nil
}

// walk iterates archive entries until fn returns done or an error. Any
// decompression or tar framing failure is reported as ErrBadArchive.
func (i *Inspector) walk(archive []byte, fn func(*tar.Header, io.Reader) (bool, error)) error {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadArchive, err)
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		done, err := fn(hdr, tr)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// isMetricsEntry matches the metrics file at the archive root or one
// directory deep.
func isMetricsEntry(hdr *tar.Header) bool {
	name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
	if path.Base(name) != MetricsFileName {
		return false
	}

	return strings.Count(name, "/") <= 1
}
