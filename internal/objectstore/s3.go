package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/google/uuid"
)

const (
	DefaultAttemptTimeout = 30 * time.Second
	presignExpiry         = 15 * time.Minute
)

// Presigner signs PUT requests. *s3.PresignClient satisfies it.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectAPI is the part of *s3.Client used for deletes.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config locates the bucket. PublicBaseURL prefixes object keys to form
// the URLs stored on records.
type S3Config struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
}

// S3Store uploads with presigned PUT requests so progress can be observed
// on the request body.
type S3Store struct {
	presigner Presigner
	api       ObjectAPI
	bucket    string
	publicURL string
	http      *http.Client
	timeout   time.Duration
	logger    logging.Logger
}

type Option func(*S3Store)

func WithHTTPClient(c *http.Client) Option      { return func(s *S3Store) { s.http = c } }
func WithAttemptTimeout(d time.Duration) Option { return func(s *S3Store) { s.timeout = d } }
func WithLogger(l logging.Logger) Option        { return func(s *S3Store) { s.logger = l } }

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Store builds an S3 client from static credentials.
func NewS3Store(ctx context.Context, cfg S3Config, opts ...Option) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	publicURL := cfg.PublicBaseURL
	if publicURL == "" && cfg.Endpoint != "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewS3StoreWith(s3.NewPresignClient(client), client, cfg.Bucket, publicURL, opts...), nil
}

// NewS3StoreWith wires explicit collaborators.
func NewS3StoreWith(p Presigner, api ObjectAPI, bucket, publicBaseURL string, opts ...Option) *S3Store {
	s := &S3Store{
		presigner: p,
		api:       api,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicBaseURL, "/"),
		http:      &http.Client{},
		timeout:   DefaultAttemptTimeout,
		logger:    logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upload sends f in a single attempt bounded by the attempt timeout.
// Failures are classified as common.ErrTransient, common.ErrRejected or
// common.ErrCancelled.
func (s *S3Store) Upload(ctx context.Context, f File, opts UploadOptions, onProgress ProgressFunc) (models.Image, error) {
	if onProgress == nil {
		onProgress = func(int) {}
	}
	publicID := opts.PublicID
	if publicID == "" {
		publicID = uuid.NewString()
	}
	key := ObjectKey(opts.Folder, publicID, f.Format)

	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(f.ContentType),
	}
	if len(opts.Tags) > 0 {
		in.Tagging = aws.String(url.Values{"tags": {strings.Join(opts.Tags, " ")}}.Encode())
	}

	signed, err := s.presigner.PresignPutObject(attemptCtx, in, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: presign %s: %v", common.ErrTransient, key, err)
	}

	body := &progressReader{r: bytes.NewReader(f.Data), total: int64(len(f.Data)), report: onProgress}
	req, err := http.NewRequestWithContext(attemptCtx, signed.Method, signed.URL, body)
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: build request: %v", common.ErrRejected, err)
	}
	req.ContentLength = int64(len(f.Data))
	for name, values := range signed.SignedHeader {
		if strings.EqualFold(name, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", f.ContentType)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return models.Image{}, fmt.Errorf("%w: upload %s", common.ErrCancelled, f.Name)
		}
		return models.Image{}, fmt.Errorf("%w: upload %s: %v", common.ErrTransient, f.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return models.Image{}, classifyStatus(resp.StatusCode, fmt.Sprintf("upload %s failed: %s; body: %s", f.Name, resp.Status, string(b)))
	}

	onProgress(100)
	return models.Image{
		PublicID: key,
		URL:      s.publicURL + "/" + key,
		Width:    f.Width,
		Height:   f.Height,
		Format:   f.Format,
	}, nil
}

// Delete removes the object, reporting DeleteNotFound when it was already gone.
func (s *S3Store) Delete(ctx context.Context, publicID string) (DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(publicID)})
	if err != nil {
		if isNotFound(err) {
			return DeleteNotFound, nil
		}
		return "", classifyAPIError("head "+publicID, err)
	}

	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(publicID)}); err != nil {
		return "", classifyAPIError("delete "+publicID, err)
	}
	return DeleteOK, nil
}

func classifyStatus(code int, msg string) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: %s", common.ErrTransient, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s", common.ErrRejected, common.ErrNotFound, msg)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s", common.ErrRejected, common.ErrUnauthorized, msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrRejected, msg)
	}
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func classifyAPIError(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorFault() == smithy.FaultClient {
		return fmt.Errorf("%w: %s: %v", common.ErrRejected, op, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrTransient, op, err)
}

// progressReader reports the share of the body read so far.
type progressReader struct {
	r      io.Reader
	total  int64
	read   atomic.Int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		done := p.read.Add(int64(n))
		pct := int(done * 100 / p.total)
		if pct > 99 {
			// 100 is reported once the store accepted the object.
			pct = 99
		}
		p.report(pct)
	}
	return n, err
}
