package chunkstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// deleteBatchSize is the S3 DeleteObjects per-request limit.
const deleteBatchSize = 1000

// NewS3Client builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing, which localstack and MinIO require.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Endpoint != "" {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}), nil
	}
	if cfg.UsePathStyle {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
		}), nil
	}
	return s3.NewFromConfig(awsCfg), nil
}

// S3Store stages chunk blobs as objects and publishes assembled artifacts
// with a single PutObject, whose visibility is atomic.
type S3Store struct {
	mu     sync.RWMutex
	client *s3.Client
	bucket string
	prefix string
	closed bool
}

// NewS3Store creates an S3 chunk store on top of an existing client.
func NewS3Store(client *s3.Client, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Store) key(elem ...string) string {
	parts := append([]string{s.prefix}, elem...)
	return path.Join(parts...)
}

func (s *S3Store) chunkKey(fileID string, index int) string {
	return s.key(fileID, "chunk_"+strconv.Itoa(index))
}

func (s *S3Store) stagingPrefix(fileID string) string {
	return s.key(fileID) + "/"
}

func (s *S3Store) finalKey(fileName string) string {
	return s.key(path.Base(fileName))
}

func (s *S3Store) location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// ChunkLocation returns the object URL of a staged chunk.
func (s *S3Store) ChunkLocation(fileID string, index int) string {
	return s.location(s.chunkKey(fileID, index))
}

// FinalPath returns the object URL the assembled artifact is published
// under.
func (s *S3Store) FinalPath(fileName string) string {
	return s.location(s.finalKey(fileName))
}

// Prepare is a no-op: object keys need no parent to exist.
func (s *S3Store) Prepare(ctx context.Context, fileID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fileID == "" {
		return errors.New("file id is required")
	}
	return nil
}

// WriteChunk stores one chunk blob. The blob is buffered in memory so the
// upload carries an exact content length; chunks are bounded by the
// protocol chunk size.
func (s *S3Store) WriteChunk(ctx context.Context, fileID string, index int, r io.Reader) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if fileID == "" {
		return 0, errors.New("file id is required")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read chunk %d: %w", index, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.chunkKey(fileID, index)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store chunk %d: %w", index, err)
	}
	return int64(len(data)), nil
}

// Assemble streams the staged chunks in index order through a pipe into a
// single PutObject. S3 makes the object visible only when the PUT
// completes, which gives the atomic publish guarantee.
func (s *S3Store) Assemble(ctx context.Context, fileID, fileName string, totalChunks int) (string, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", 0, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if fileID == "" {
		return "", 0, errors.New("file id is required")
	}

	sizes, err := s.stagedChunkSizes(ctx, fileID)
	if err != nil {
		return "", 0, err
	}

	var total int64
	for i := 0; i < totalChunks; i++ {
		size, ok := sizes[i]
		if !ok {
			return "", 0, fmt.Errorf("chunk %d of %s: %w", i, fileID, ErrChunkMissing)
		}
		total += size
	}

	pr, pw := io.Pipe()
	var feedErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		feedErr = s.feedChunks(ctx, pw, fileID, totalChunks)
	}()

	key := s.finalKey(fileName)
	_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          pr,
		ContentLength: aws.Int64(total),
	})
	_ = pr.CloseWithError(putErr)
	<-done

	if feedErr != nil {
		return "", 0, feedErr
	}
	if putErr != nil {
		return "", 0, fmt.Errorf("failed to publish %s: %w", key, putErr)
	}
	return s.location(key), total, nil
}

// feedChunks writes the staged chunks to pw in index order, closing it
// with the first error so the consuming PutObject aborts.
func (s *S3Store) feedChunks(ctx context.Context, pw *io.PipeWriter, fileID string, totalChunks int) error {
	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			_ = pw.CloseWithError(err)
			return err
		}

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.chunkKey(fileID, i)),
		})
		if err != nil {
			if isNotFoundError(err) {
				err = fmt.Errorf("chunk %d of %s: %w", i, fileID, ErrChunkMissing)
			} else {
				err = fmt.Errorf("failed to read chunk %d: %w", i, err)
			}
			_ = pw.CloseWithError(err)
			return err
		}

		_, err = io.Copy(pw, out.Body)
		if cerr := out.Body.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			err = fmt.Errorf("failed to stream chunk %d: %w", i, err)
			_ = pw.CloseWithError(err)
			return err
		}
	}
	return pw.Close()
}

func (s *S3Store) stagedChunkSizes(ctx context.Context, fileID string) (map[int]int64, error) {
	sizes := make(map[int]int64)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.stagingPrefix(fileID)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list staged chunks: %w", err)
		}
		for _, obj := range page.Contents {
			index, ok := parseChunkIndex(path.Base(aws.ToString(obj.Key)))
			if !ok {
				continue
			}
			sizes[index] = aws.ToInt64(obj.Size)
		}
	}
	return sizes, nil
}

// RemoveStaging deletes all staged objects for a file in batches.
func (s *S3Store) RemoveStaging(ctx context.Context, fileID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fileID == "" {
		return errors.New("file id is required")
	}

	var ids []types.ObjectIdentifier
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.stagingPrefix(fileID)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list staged chunks: %w", err)
		}
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: ids[start:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete staged chunks: %w", err)
		}
	}
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not reachable: %w", s.bucket, err)
	}
	return nil
}

// Close marks the store as closed.
func (s *S3Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func parseChunkIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "chunk_")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// isNotFoundError reports whether err is an S3 object-missing error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}

var _ Store = (*S3Store)(nil)
