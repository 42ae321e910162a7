package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// SpillPriority is the priority of the disk/object-storage spill
// transmitter: lowest, tried only once primary and fallback both fail.
const SpillPriority = 1

// S3Putter is the subset of *s3.Client the spill transmitter depends on,
// narrowed for testability.
type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SpillTransmitter writes batches that exhausted every other transmitter to
// an S3 bucket for offline reprocessing, rather than discarding them. It is
// opt-in and off by default (see design notes on the disk-backed spill
// queue): construct one only when a host wants durability across extended
// outages at the cost of eventual, not immediate, delivery.
type SpillTransmitter struct {
	client S3Putter
	bucket string
	prefix string
}

// NewSpillTransmitter constructs a SpillTransmitter writing to bucket under
// prefix (e.g. "omnitrack/spill/").
func NewSpillTransmitter(client S3Putter, bucket, prefix string) *SpillTransmitter {
	return &SpillTransmitter{client: client, bucket: bucket, prefix: prefix}
}

// IsAvailable reports whether a bucket has been configured.
func (t *SpillTransmitter) IsAvailable() bool {
	return t != nil && t.client != nil && t.bucket != ""
}

// Priority implements Transmitter.
func (t *SpillTransmitter) Priority() int { return SpillPriority }

// Send implements Transmitter, writing batch as a single JSON object keyed
// by its batch id and the time of the write.
func (t *SpillTransmitter) Send(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("transport: marshal spill batch: %w", err)
	}

	key := t.objectKey(batch)
	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &t.bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: strPtr("application/json"),
	})
	if err != nil {
		return fmt.Errorf("transport: spill put object: %w", err)
	}
	return nil
}

func (t *SpillTransmitter) objectKey(batch Batch) string {
	id := batch.BatchID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return fmt.Sprintf("%s%s-%d.json", t.prefix, id, time.Now().UnixNano())
}

func strPtr(s string) *string { return &s }
