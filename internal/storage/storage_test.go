package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "s3://bucket/models/raw/model.tar.gz", URI("bucket", "models/raw/model.tar.gz"))
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	bucket, key, err := ParseURI("s3://bucket/models/raw/model.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "bucket", bucket)
	require.Equal(t, "models/raw/model.tar.gz", key)
}

func TestParseURIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uri  string
	}{
		{name: "wrong scheme", uri: "gs://bucket/key"},
		{name: "no key", uri: "s3://bucket"},
		{name: "empty bucket", uri: "s3:///key"},
		{name: "empty", uri: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := ParseURI(tt.uri)
			require.Error(t, err)
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	t.Parallel()

	bucket, key, err := ParseURI(URI("pipeline", "data/train/batch.csv"))
	require.NoError(t, err)
	require.Equal(t, "pipeline", bucket)
	require.Equal(t, "data/train/batch.csv", key)
}
