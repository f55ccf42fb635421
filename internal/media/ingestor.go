// Package media turns client-submitted images into hosted URLs in the blob
// store and removes them again when the owning content goes away.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/storage"
)

// MaxImagesPerRequest bounds how many new images one write may upload
const MaxImagesPerRequest = 20

// DefaultFolder is the logical folder uploads are stored under
const DefaultFolder = "clinic_blog"

// Asset is an image hosted in the blob store
type Asset struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Recorder observes blob store traffic
type Recorder interface {
	ObserveUpload(duration time.Duration, err error)
	ObserveRelease(err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveUpload(time.Duration, error) {}
func (noopRecorder) ObserveRelease(error)              {}

// Config configures an Ingestor
type Config struct {
	// Folder is the key prefix for every upload
	Folder string
	// PublicBaseURL is prepended to object keys to form hosted URLs
	PublicBaseURL string
}

// Ingestor uploads images to a storage.Backend and resolves hosted URLs back to keys
type Ingestor struct {
	store     storage.Backend
	optimizer *Optimizer
	folder    string
	baseURL   *url.URL
	recorder  Recorder
	newID     func() uuid.UUID
}

// Option configures an Ingestor
type Option func(*Ingestor)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(i *Ingestor) {
		if r != nil {
			i.recorder = r
		}
	}
}

// WithOptimizer replaces the default optimizer
func WithOptimizer(o *Optimizer) Option {
	return func(i *Ingestor) {
		if o != nil {
			i.optimizer = o
		}
	}
}

// NewIngestor creates an Ingestor storing into store
func NewIngestor(store storage.Backend, cfg Config, opts ...Option) (*Ingestor, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, errors.New("public base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.PublicBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid public base URL: %w", err)
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}

	i := &Ingestor{
		store:     store,
		optimizer: NewOptimizer(true, 0, 0),
		folder:    folder,
		baseURL:   base,
		recorder:  noopRecorder{},
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// URLFor returns the hosted URL of objectKey
func (i *Ingestor) URLFor(objectKey string) string {
	return i.baseURL.String() + "/" + objectKey
}

// KeyFromURL extracts the object key from a URL produced by URLFor. It
// reports false for URLs hosted elsewhere or outside the upload folder.
func (i *Ingestor) KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Host != i.baseURL.Host || u.Scheme != i.baseURL.Scheme {
		return "", false
	}

	key, ok := strings.CutPrefix(u.Path, strings.TrimSuffix(i.baseURL.Path, "/")+"/")
	if !ok || !strings.HasPrefix(key, i.folder+"/") || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// Upload optimizes and stores raw image bytes
func (i *Ingestor) Upload(ctx context.Context, data []byte) (Asset, error) {
	processed, contentType, err := i.optimizer.Process(data)
	if err != nil {
		return Asset{}, err
	}

	ext, _ := Extension(contentType)
	key := i.folder + "/" + i.newID().String() + ext

	start := time.Now()
	err = i.store.Upload(ctx, key, bytes.NewReader(processed), contentType)
	i.recorder.ObserveUpload(time.Since(start), err)
	if err != nil {
		return Asset{}, &domain.MediaError{Op: "upload", Key: key, Err: err}
	}

	return Asset{URL: i.URLFor(key), ID: key}, nil
}

// Release deletes the object behind a hosted URL. Failures are logged and
// never returned: the caller's operation must succeed regardless.
func (i *Ingestor) Release(ctx context.Context, hostedURL string) {
	if hostedURL == "" {
		return
	}
	key, ok := i.KeyFromURL(hostedURL)
	if !ok {
		slog.Warn("Media release skipped, URL not hosted by this store", "url", hostedURL)
		return
	}

	err := i.store.Delete(ctx, key)
	i.recorder.ObserveRelease(err)
	if err != nil {
		slog.Warn("Media release failed", "key", key, "err", &domain.MediaError{Op: "release", Key: key, Err: err})
	}
}

// ReleaseAll releases every URL in urls
func (i *Ingestor) ReleaseAll(ctx context.Context, urls []string) {
	for _, u := range urls {
		i.Release(ctx, u)
	}
}

// Batch ingests the images of one write and remembers what it uploaded so
// the write can be rolled back if it fails later.
type Batch struct {
	ingestor *Ingestor
	mu       sync.Mutex
	uploaded []Asset
}

// NewBatch starts a Batch
func (i *Ingestor) NewBatch() *Batch {
	return &Batch{ingestor: i}
}

// Ingest resolves src to a URL. Hosted URLs and other plain strings pass
// through unchanged; data URIs and files are uploaded.
func (b *Batch) Ingest(ctx context.Context, src Source) (string, error) {
	var data []byte
	switch {
	case src.File != nil:
		data = src.File.Data
		if len(data) == 0 {
			return "", domain.NewValidationError("image", "empty image file")
		}
	case IsDataURI(src.Value):
		var err error
		data, _, err = decodeDataURI(src.Value)
		if err != nil {
			return "", err
		}
	default:
		return src.Value, nil
	}

	asset, err := b.ingestor.Upload(ctx, data)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.uploaded = append(b.uploaded, asset)
	b.mu.Unlock()
	return asset.URL, nil
}

// IngestSections ingests each section's images concurrently. The result
// has one entry per input section, in input order, and each entry keeps
// the order of its sources; a section without images gets an empty list.
func (b *Batch) IngestSections(ctx context.Context, sections [][]Source) ([][]string, error) {
	pending := 0
	for _, sources := range sections {
		for _, src := range sources {
			if src.IsNew() {
				pending++
			}
		}
	}
	if pending > MaxImagesPerRequest {
		return nil, domain.NewValidationError("sections", "too many images, at most %d per request", MaxImagesPerRequest)
	}

	results := make([][]string, len(sections))
	for idx, sources := range sections {
		results[idx] = make([]string, len(sources))
	}

	g, gctx := errgroup.WithContext(ctx)
	for idx, sources := range sections {
		for pos, src := range sources {
			if !src.IsNew() {
				results[idx][pos] = src.Value
				continue
			}
			g.Go(func() error {
				u, err := b.Ingest(gctx, src)
				if err != nil {
					return fmt.Errorf("section %d image %d: %w", idx, pos, err)
				}
				results[idx][pos] = u
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for idx := range results {
		results[idx] = compact(results[idx])
	}
	return results, nil
}

// Uploaded returns the assets uploaded so far
func (b *Batch) Uploaded() []Asset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Asset(nil), b.uploaded...)
}

// Rollback releases everything this batch uploaded
func (b *Batch) Rollback(ctx context.Context) {
	for _, asset := range b.Uploaded() {
		b.ingestor.Release(ctx, asset.URL)
	}
}

// compact drops empty entries and never returns nil
func compact(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
