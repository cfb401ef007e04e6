package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kadedb/kadedb"
)

// s3Uploader is the subset of *manager.Uploader S3ArchiveSink needs,
// narrowed so tests can substitute a fake without a live AWS account.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3ArchiveSink archives a JSON summary of each ChangeEvent (target, op,
// row and document counts, time; not the row or document values) under
// prefix/<target>/<unix-nano>.json in an S3-compatible bucket, mirroring
// the teacher's WAL-segment archival role without its HTTP-HEAD-only
// health check — this adapter performs a real write via the AWS SDK.
// Uploads go through manager.Uploader rather than a raw PutObject call so a
// future larger archive payload (e.g. a batched flush) transparently splits
// into a multipart upload instead of needing a rewrite.
type S3ArchiveSink struct {
	uploader s3Uploader
	bucket   string
	prefix   string
}

// NewS3ArchiveSink loads the default AWS config chain and builds an
// uploader targeting bucket/prefix.
func NewS3ArchiveSink(ctx context.Context, bucket, prefix string) (*S3ArchiveSink, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("sink: load aws config: %w", err)
	}
	return &S3ArchiveSink{uploader: manager.NewUploader(s3.NewFromConfig(cfg)), bucket: bucket, prefix: prefix}, nil
}

// NewS3ArchiveSinkWithStaticCredentials builds a sink against an explicit
// access/secret key pair instead of the default credential chain, for
// deployments that inject credentials directly rather than via environment
// or instance role.
func NewS3ArchiveSinkWithStaticCredentials(ctx context.Context, region, accessKeyID, secretAccessKey, bucket, prefix string) (*S3ArchiveSink, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: load aws config: %w", err)
	}
	return &S3ArchiveSink{uploader: manager.NewUploader(s3.NewFromConfig(cfg)), bucket: bucket, prefix: prefix}, nil
}

// newS3ArchiveSink builds a sink over an already-constructed uploader, the
// seam unit tests use to substitute a fake s3Uploader.
func newS3ArchiveSink(uploader s3Uploader, bucket, prefix string) *S3ArchiveSink {
	return &S3ArchiveSink{uploader: uploader, bucket: bucket, prefix: prefix}
}

// Notify serializes a summary of event (target, op, row and document
// counts, time) as JSON and writes it to a new, timestamped key.
func (s *S3ArchiveSink) Notify(ctx context.Context, event kadedb.ChangeEvent) error {
	body, err := json.Marshal(archivedEvent{
		Target:   event.Target,
		Op:       string(event.Op),
		RowCount: len(event.Rows),
		DocCount: len(event.Documents),
		Recorded: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("sink: marshal change event: %w", err)
	}
	key := fmt.Sprintf("%s/%s/%d.json", s.prefix, event.Target, time.Now().UnixNano())
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		EmitFailure(ctx, "s3", err)
		return fmt.Errorf("sink: s3 put %s/%s: %w", s.bucket, key, err)
	}
	EmitEventCount(ctx, "s3", event.Target, int64(len(event.Rows)+len(event.Documents)))
	return nil
}

type archivedEvent struct {
	Target   string    `json:"target"`
	Op       string    `json:"op"`
	RowCount int       `json:"row_count"`
	DocCount int       `json:"doc_count"`
	Recorded time.Time `json:"recorded_at"`
}
