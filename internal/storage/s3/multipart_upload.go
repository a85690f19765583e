package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/objectfs/objectfs/internal/pagecache"
	"github.com/objectfs/objectfs/internal/workerpool"
	"github.com/objectfs/objectfs/pkg/headers"
)

// PresignedPartUpload is what the planner's worker-pool dispatch needs to
// PUT one part's bytes without the worker holding an AWS SDK client:
// presigned URLs let the pool's bare *http.Client do the transfer.
type PresignedPartUpload struct {
	PartNumber int
	URL        string
	Range      Range
}

// MultipartUploader drives one multipart upload of a cached file against
// the planner's output, dispatching each part through the worker pool.
type MultipartUploader struct {
	backend *Backend
	pool    *workerpool.Pool
	presign *s3.PresignClient
}

// NewMultipartUploader builds an uploader bound to backend's S3 client
// and the given worker pool. pool is typically workerpool.Current(); a
// caller-supplied pool makes the uploader testable without the
// process-wide singleton.
func NewMultipartUploader(backend *Backend, pool *workerpool.Pool) *MultipartUploader {
	return &MultipartUploader{
		backend: backend,
		pool:    pool,
		presign: s3.NewPresignClient(backend.client),
	}
}

// uploadResult is what the worker pool reports back for one part.
type uploadResult struct {
	partNumber int
	etag       string
	err        error
}

// Upload executes plan against key: every part is either read from the
// local cache and PUT or copied server-side with UploadPartCopy,
// dispatched across the worker pool and gathered before
// CompleteMultipartUpload is called. A plan whose only part is a copy
// becomes a single CopyObject. Upload does not act on plan.DownloadFills:
// upload parts are read from cache as they stand.
func (u *MultipartUploader) Upload(ctx context.Context, key string, cache pagecache.CacheFile, plan UploadPlan) error {
	if len(plan.Parts) == 0 {
		return nil
	}
	if len(plan.Parts) == 1 && !plan.Parts[0].Upload {
		return u.copyWholeObject(ctx, key, plan.Parts[0])
	}

	created, err := u.backend.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(u.backend.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectfs: create multipart upload for %q: %w", key, err)
	}
	uploadID := created.UploadId

	results := make(chan uploadResult, len(plan.Parts))
	for i, part := range plan.Parts {
		partNumber := i + 1
		part := part
		instr := u.partInstruction(ctx, key, *uploadID, partNumber, part, cache, results)
		u.dispatch(instr)
	}

	completed := make([]s3types.CompletedPart, 0, len(plan.Parts))
	for range plan.Parts {
		res := <-results
		if res.err != nil {
			_, _ = u.backend.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(u.backend.bucket),
				Key:      aws.String(key),
				UploadId: uploadID,
			})
			return fmt.Errorf("objectfs: multipart part %d of %q failed: %w", res.partNumber, key, res.err)
		}
		completed = append(completed, s3types.CompletedPart{
			PartNumber: aws.Int32(int32(res.partNumber)),
			ETag:       aws.String(res.etag),
		})
	}

	_, err = u.backend.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(u.backend.bucket),
		Key:             aws.String(key),
		UploadId:        uploadID,
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("objectfs: complete multipart upload for %q: %w", key, err)
	}
	return nil
}

func (u *MultipartUploader) dispatch(instr workerpool.Instruction) {
	if u.pool != nil {
		u.pool.Instruct(instr)
		return
	}
	_ = instr.Run(context.Background(), &http.Client{Timeout: 60 * time.Second})
}

// partInstruction builds the worker-pool instruction for one part: an
// upload part reads its bytes from the local cache and PUTs them via a
// presigned URL on the worker's own *http.Client; a copy part calls
// UploadPartCopy directly since server-side copy has no HTTP body for
// the worker to stream.
func (u *MultipartUploader) partInstruction(ctx context.Context, key, uploadID string, partNumber int, part MixPart, cache pagecache.CacheFile, results chan<- uploadResult) workerpool.Instruction {
	name := fmt.Sprintf("multipart-part-%d", partNumber)
	if !part.Upload {
		return workerpool.Instruction{
			Name: name,
			Run: func(ctx context.Context, _ *http.Client) error {
				etag, err := u.copyPart(ctx, key, uploadID, partNumber, part)
				results <- uploadResult{partNumber: partNumber, etag: etag, err: err}
				return err
			},
		}
	}

	return workerpool.Instruction{
		Name: name,
		Run: func(ctx context.Context, client *http.Client) error {
			etag, err := u.uploadPart(ctx, uploadID, key, partNumber, part, cache, client)
			results <- uploadResult{partNumber: partNumber, etag: etag, err: err}
			return err
		},
	}
}

// uploadPart streams a part's bytes over the worker's own *http.Client
// against a presigned PUT URL, rather than routing through the AWS SDK's
// client directly, so the worker never needs to hold credentials. The
// presigned request's signed headers are rebuilt into a canonical,
// sorted header list before being set on the outgoing request.
func (u *MultipartUploader) uploadPart(ctx context.Context, uploadID, key string, partNumber int, part MixPart, cache pagecache.CacheFile, client *http.Client) (string, error) {
	buf := make([]byte, part.Bytes)
	if _, err := cache.ReadAt(buf, part.Offset); err != nil {
		return "", fmt.Errorf("read cached bytes for part %d: %w", partNumber, err)
	}

	url, signed, err := u.presignUploadPart(ctx, key, uploadID, partNumber)
	if err != nil {
		return "", fmt.Errorf("presign part %d: %w", partNumber, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	for _, key := range strings.Split(signed.GetSortedKeys(), ";") {
		if key == "" {
			continue
		}
		if value, ok := signed.GetValue(key); ok {
			req.Header.Set(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload part %d: %w", partNumber, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("objectfs: upload part %d: unexpected status %s", partNumber, resp.Status)
	}
	return resp.Header.Get("ETag"), nil
}

func (u *MultipartUploader) copyPart(ctx context.Context, key, uploadID string, partNumber int, part MixPart) (string, error) {
	source := fmt.Sprintf("%s/%s", u.backend.bucket, key)
	out, err := u.backend.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
		Bucket:          aws.String(u.backend.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		PartNumber:      aws.Int32(int32(partNumber)),
		CopySource:      aws.String(source),
		CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", part.Offset, part.End()-1)),
	})
	if err != nil {
		return "", err
	}
	if out.CopyPartResult == nil {
		return "", fmt.Errorf("objectfs: empty copy part result for part %d", partNumber)
	}
	return aws.ToString(out.CopyPartResult.ETag), nil
}

func (u *MultipartUploader) copyWholeObject(ctx context.Context, key string, part MixPart) error {
	_, err := u.backend.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(u.backend.bucket),
		Key:        aws.String(key),
		CopySource: aws.String(fmt.Sprintf("%s/%s", u.backend.bucket, key)),
	})
	return err
}

// PresignUploadURL returns a presigned PUT URL for one part, handed to a
// worker-pool instruction so the worker's bare *http.Client can stream
// the part body without ever holding AWS credentials.
func (u *MultipartUploader) PresignUploadURL(ctx context.Context, key, uploadID string, partNumber int) (string, error) {
	url, _, err := u.presignUploadPart(ctx, key, uploadID, partNumber)
	return url, err
}

// presignUploadPart presigns one part's PUT request and rebuilds its
// signed headers into a canonical, case-insensitive sorted list, the
// same shape uploadPart needs to replay the request on a bare
// *http.Client.
func (u *MultipartUploader) presignUploadPart(ctx context.Context, key, uploadID string, partNumber int) (string, *headers.List, error) {
	req, err := u.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(u.backend.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(partNumber)),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", nil, err
	}

	signed := headers.New()
	for name, values := range req.SignedHeader {
		for _, value := range values {
			signed.SortedInsert(name, value)
		}
	}
	return req.URL, signed, nil
}
