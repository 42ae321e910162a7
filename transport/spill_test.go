package transport_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/transport"
)

type fakeS3 struct {
	lastKey string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastKey = *params.Key
	return &s3.PutObjectOutput{}, nil
}

func TestSpillTransmitter_WritesObjectUnderPrefix(t *testing.T) {
	fake := &fakeS3{}
	tx := transport.NewSpillTransmitter(fake, "omnitrack-spill", "agents/a1/")

	require.NoError(t, tx.Send(context.Background(), sampleBatch()))
	assert.Contains(t, fake.lastKey, "agents/a1/")
	assert.Equal(t, transport.SpillPriority, tx.Priority())
}

func TestSpillTransmitter_UnavailableWithoutBucket(t *testing.T) {
	tx := transport.NewSpillTransmitter(&fakeS3{}, "", "")
	assert.False(t, tx.IsAvailable())
}
