package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/storage"
)

// commentKeyPrefix marks threshold document keys that carry documentation
// instead of a threshold.
const commentKeyPrefix = "_"

// DefaultThresholds returns the thresholds used when the configured threshold
// document is unreachable or malformed.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		"accuracy":  0.85,
		"f1_score":  0.80,
		"precision": 0.75,
		"recall":    0.75,
	}
}

// ThresholdLoader reads the threshold configuration document from object
// storage, falling back to DefaultThresholds on any failure.
type ThresholdLoader struct {
	store storage.ObjectStore
	log   logrus.FieldLogger
}

// NewThresholdLoader creates a threshold loader backed by the given store.
func NewThresholdLoader(log logrus.FieldLogger, store storage.ObjectStore) *ThresholdLoader {
	return &ThresholdLoader{
		store: store,
		log:   log.WithField("component", "threshold_loader"),
	}
}

// Load fetches and parses the threshold document at bucket/key. Keys prefixed
// with the comment marker are excluded. The returned set is never empty: any
// fetch or parse failure logs a warning and yields the defaults.
func (l *ThresholdLoader) Load(ctx context.Context, bucket, key string) ThresholdSet {
	raw, err := l.store.Fetch(ctx, bucket, key)
	if err != nil {
		l.log.WithError(err).Warn("could not load thresholds, using defaults")
		return DefaultThresholds()
	}

	thresholds, err := parseThresholds(raw)
	if err != nil {
		l.log.WithError(err).Warn("could not parse thresholds, using defaults")
		return DefaultThresholds()
	}

	return thresholds
}

func parseThresholds(raw []byte) (ThresholdSet, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling threshold document: %w", err)
	}

	thresholds := make(ThresholdSet, len(doc))
	for name, value := range doc {
		if strings.HasPrefix(name, commentKeyPrefix) {
			continue
		}

		var minimum float64
		if err := json.Unmarshal(value, &minimum); err != nil {
			return nil, fmt.Errorf("threshold %q is not numeric: %w", name, err)
		}

		thresholds[name] = minimum
	}

	return thresholds, nil
}
