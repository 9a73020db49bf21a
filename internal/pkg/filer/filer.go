package filer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

// ObjectPrefix is the storage key prefix for call audio
const ObjectPrefix = "calls"

// Filer saves and loads call audio in minio object storage.
// SaveFile retries transient failures with linear backoff and reports progress in [0, 100]
type Filer struct {
	client    *minio.Client
	bucket    string
	publicURL string
	attempts  int
	delay     time.Duration
	putF      func(ctx context.Context, name string, r io.Reader, size int64) error
}

// NewFiler creates the minio filer
func NewFiler(ctx context.Context, cfg *viper.Viper) (*Filer, error) {
	url := cfg.GetString("filer.url")
	if url == "" {
		return nil, fmt.Errorf("no filer url")
	}
	bucket := cfg.GetString("filer.bucket")
	if bucket == "" {
		return nil, fmt.Errorf("no filer bucket")
	}
	cl, err := minio.New(url, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetString("filer.user"), cfg.GetString("filer.key"), ""),
		Secure: cfg.GetBool("filer.https"),
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: cl, bucket: bucket}
	res.publicURL = strings.TrimSuffix(cfg.GetString("filer.publicUrl"), "/")
	if res.publicURL == "" {
		scheme := "http"
		if cfg.GetBool("filer.https") {
			scheme = "https"
		}
		res.publicURL = fmt.Sprintf("%s://%s", scheme, url)
	}
	res.attempts = cfg.GetInt("filer.uploadRetryCount")
	if res.attempts < 1 {
		res.attempts = 3
	}
	res.delay = cfg.GetDuration("filer.uploadRetryDelay")
	if res.delay <= 0 {
		res.delay = time.Second
	}
	res.putF = res.putObject
	if err := res.ensureBucket(ctx); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", url).Str("bucket", bucket).Int("attempts", res.attempts).Msg("filer ready")
	return res, nil
}

func (f *Filer) ensureBucket(ctx context.Context) error {
	exists, err := f.client.BucketExists(ctx, f.bucket)
	if err != nil {
		return fmt.Errorf("can't check bucket '%s': %w", f.bucket, err)
	}
	if !exists {
		if err := f.client.MakeBucket(ctx, f.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("can't create bucket '%s': %w", f.bucket, err)
		}
		goapp.Log.Info().Str("bucket", f.bucket).Msg("created")
	}
	return nil
}

// SaveFile moves audio into durable storage and returns its retrieval URL.
// progressF gets values in [0, 100]; 100 is reported exactly once on success,
// a permanent failure resets progress to 0
func (f *Filer) SaveFile(ctx context.Context, name string, r io.ReadSeeker, size int64, progressF func(int)) (string, error) {
	if progressF == nil {
		progressF = func(int) {}
	}
	op := func() error {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(fmt.Errorf("can't rewind reader: %w", err))
		}
		progressF(0)
		pr := &progressReader{r: r, total: size, report: progressF}
		if err := f.putF(ctx, name, pr, size); err != nil {
			return fmt.Errorf("can't put object '%s': %w", name, err)
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(newLinearBackOff(f.delay), uint64(f.attempts-1)), ctx)
	if err := backoff.RetryNotify(op, bo, func(err error, d time.Duration) {
		goapp.Log.Warn().Err(err).Dur("after", d).Str("name", name).Msg("retry upload")
	}); err != nil {
		progressF(0)
		return "", fmt.Errorf("upload failed after %d attempts: %w", f.attempts, err)
	}
	progressF(100)
	return f.GetURL(name), nil
}

func (f *Filer) putObject(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := f.client.PutObject(ctx, f.bucket, name, r, size,
		minio.PutObjectOptions{ContentType: "audio/mpeg"})
	return err
}

// GetURL returns the durable public retrieval URL for the stored object
func (f *Filer) GetURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", f.publicURL, f.bucket, name)
}

// LoadFile retrieves object from storage.
// The returned file exposes Stat() (fs.FileInfo, error) for http.ServeContent callers
func (f *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't get object '%s': %w", name, err)
	}
	return &objectFile{Object: obj}, nil
}

// objectFile adapts minio object Stat to the fs.FileInfo shape
type objectFile struct {
	*minio.Object
}

func (o *objectFile) Stat() (fs.FileInfo, error) {
	info, err := o.Object.Stat()
	if err != nil {
		return nil, err
	}
	return objectInfo{info: info}, nil
}

type objectInfo struct {
	info minio.ObjectInfo
}

func (oi objectInfo) Name() string       { return path.Base(oi.info.Key) }
func (oi objectInfo) Size() int64        { return oi.info.Size }
func (oi objectInfo) Mode() fs.FileMode  { return 0 }
func (oi objectInfo) ModTime() time.Time { return oi.info.LastModified }
func (oi objectInfo) IsDir() bool        { return false }
func (oi objectInfo) Sys() any           { return nil }

// Clean removes all stored objects related with ID
func (f *Filer) Clean(ctx context.Context, id string) error {
	prefix := fmt.Sprintf("%s/%s/", ObjectPrefix, id)
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("can't list objects '%s': %w", prefix, obj.Err)
		}
		if err := f.client.RemoveObject(ctx, f.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("can't remove object '%s': %w", obj.Key, err)
		}
		goapp.Log.Info().Str("object", obj.Key).Msg("removed")
	}
	return nil
}

// progressReader reports transfer percent while the object is read.
// It never reports 100 itself - the final value is sent by SaveFile after the put succeeds
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.total > 0 {
		prc := int(pr.read * 100 / pr.total)
		if prc > 99 {
			prc = 99
		}
		if prc != pr.last {
			pr.last = prc
			pr.report(prc)
		}
	}
	return n, err
}

type linearBackOff struct {
	base    time.Duration
	attempt int
}

func newLinearBackOff(base time.Duration) *linearBackOff {
	return &linearBackOff{base: base}
}

// NextBackOff returns delay = base * attempt number
func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
