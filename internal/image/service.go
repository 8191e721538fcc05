package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imagepost/service/internal/storage"
)

var (
	// ErrUploadFailed is returned when an object in the batch could not be stored.
	// Objects stored before the failure are left in place.
	ErrUploadFailed = errors.New("unable to upload images")
	// ErrDeleteFailed is returned when the object deletions could not be carried
	// out at all. The record is preserved.
	ErrDeleteFailed = errors.New("unable to delete images")
)

// UploadResult is the outcome of a successful upload batch.
type UploadResult struct {
	Record  *Record
	Results []storage.PutResult
	Keys    []string
}

// GetResult is a fetched record. Signed is true when URLs were generated on
// this call and false when the record was served from its cached URLs.
type GetResult struct {
	Record *Record
	Signed bool
}

// DeleteResult is the removed record with per-object delete outcomes.
type DeleteResult struct {
	Record  *Record
	Deleted int
	Failed  int
}

// Service coordinates the object store and the record repository.
type Service struct {
	repo    Repository
	storage storage.Storage
	limits  Limits
	log     *zap.Logger
}

// NewService creates a new image Service.
func NewService(repo Repository, store storage.Storage, limits Limits, log *zap.Logger) *Service {
	return &Service{repo: repo, storage: store, limits: limits, log: log}
}

// Limits returns the upload limits the service validates against.
func (s *Service) Limits() Limits {
	return s.limits
}

// Upload validates the batch, stores each file in order and records the keys.
// The first storage failure aborts the rest of the batch.
func (s *Service) Upload(ctx context.Context, files []*multipart.FileHeader) (*UploadResult, error) {
	if err := s.limits.Validate(files); err != nil {
		return nil, err
	}

	res := &UploadResult{
		Results: make([]storage.PutResult, 0, len(files)),
		Keys:    make([]string, 0, len(files)),
	}
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("%w: read %q: %w", ErrUploadFailed, fh.Filename, err)
		}

		put, err := s.storage.Put(ctx, data, contentType(fh), fh.Filename)
		if err != nil {
			s.log.Error("upload aborted",
				zap.String("file", fh.Filename),
				zap.Int("stored", len(res.Keys)),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		res.Results = append(res.Results, put)
		res.Keys = append(res.Keys, put.Key)
	}

	rec, err := s.repo.Create(ctx, res.Keys)
	if err != nil {
		return nil, fmt.Errorf("save image record: %w", err)
	}
	res.Record = rec

	s.log.Info("images uploaded", zap.String("id", rec.ID), zap.Int("count", len(res.Keys)))
	return res, nil
}

// Get returns the record. When no image has a cached URL, URLs are signed
// concurrently and written back before returning. Images whose signing fails
// keep an empty URL.
func (s *Service) Get(ctx context.Context, id string) (*GetResult, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.needsSigning() {
		return &GetResult{Record: rec}, nil
	}

	s.sign(ctx, rec)
	s.cacheURLs(ctx, rec)
	return &GetResult{Record: rec, Signed: true}, nil
}

func (s *Service) sign(ctx context.Context, rec *Record) {
	var g errgroup.Group
	for i := range rec.Images {
		img := &rec.Images[i]
		g.Go(func() error {
			u, err := s.storage.SignedURL(ctx, img.Key)
			if err != nil {
				s.log.Warn("sign url failed", zap.String("id", rec.ID), zap.String("key", img.Key), zap.Error(err))
				return nil
			}
			img.URL = u
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) cacheURLs(ctx context.Context, rec *Record) {
	var g errgroup.Group
	for _, img := range rec.Images {
		img := img // per-iteration copy; module targets go 1.21 loop semantics
		if img.URL == "" {
			continue
		}
		g.Go(func() error {
			if err := s.repo.UpdateImageURL(ctx, rec.ID, img.Key, img.URL); err != nil {
				s.log.Warn("cache url failed", zap.String("id", rec.ID), zap.String("key", img.Key), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Delete removes every object of the record concurrently and then the record.
// Individual object failures are counted, not fatal; ErrDeleteFailed is
// returned when the request ends before the deletions settle or none of them
// succeed.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var failed atomic.Int64
	var g errgroup.Group
	for _, img := range rec.Images {
		img := img // per-iteration copy; module targets go 1.21 loop semantics
		g.Go(func() error {
			if err := s.storage.Delete(ctx, img.Key); err != nil {
				failed.Add(1)
				s.log.Warn("delete object failed", zap.String("id", id), zap.String("key", img.Key), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &DeleteResult{Record: rec, Failed: int(failed.Load())}
	res.Deleted = len(rec.Images) - res.Failed

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	if len(rec.Images) > 0 && res.Deleted == 0 {
		return nil, fmt.Errorf("%w: all %d object deletions failed", ErrDeleteFailed, res.Failed)
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info("image record deleted", zap.String("id", id), zap.Int("deleted", res.Deleted), zap.Int("failed", res.Failed))
	return res, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
