package service

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

const objectFileMode = 0o644

type UploadOptions struct {
	Upsert bool
}

type StorageService interface {
	Upload(ctx context.Context, bucket, path string, content io.Reader, opts UploadOptions) (*models.FileObject, error)
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	GetPublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths []string) ([]models.FileObject, error)
}

type storageService struct {
	fs        afs.Service
	rootURL   string
	publicURL string
}

// NewStorage keeps objects under rootURL/<bucket>/<path>. rootURL is any
// location afs can address (file://, s3://, gs://, mem://).
func NewStorage(fs afs.Service, rootURL, publicURL string) StorageService {
	return &storageService{
		fs:        fs,
		rootURL:   strings.TrimRight(rootURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *storageService) Upload(ctx context.Context, bucket, path string, content io.Reader, opts UploadOptions) (*models.FileObject, error) {
	objectURL, err := s.objectURL(bucket, path)
	if err != nil {
		return nil, err
	}

	if !opts.Upsert {
		exists, err := s.fs.Exists(ctx, objectURL)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &customerrors.BackendError{
				Status:  http.StatusConflict,
				Code:    customerrors.CodeStorageDuplicate,
				Message: "The resource already exists",
			}
		}
	}

	if err := s.fs.Upload(ctx, objectURL, objectFileMode, content); err != nil {
		return nil, err
	}

	return fileObject(bucket, path), nil
}

func (s *storageService) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	objectURL, err := s.objectURL(bucket, path)
	if err != nil {
		return nil, err
	}

	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errObjectNotFound(bucket, path)
	}

	return s.fs.DownloadWithURL(ctx, objectURL)
}

// GetPublicURL only formats the URL; it does not check the object exists.
func (s *storageService) GetPublicURL(bucket, path string) string {
	return s.publicURL + "/" + bucket + "/" + strings.TrimLeft(path, "/")
}

// Remove deletes every existing object in paths and returns those it removed.
func (s *storageService) Remove(ctx context.Context, bucket string, paths []string) ([]models.FileObject, error) {
	removed := make([]models.FileObject, 0, len(paths))

	for _, path := range paths {
		objectURL, err := s.objectURL(bucket, path)
		if err != nil {
			return removed, err
		}

		exists, err := s.fs.Exists(ctx, objectURL)
		if err != nil {
			return removed, err
		}
		if !exists {
			continue
		}

		if err := s.fs.Delete(ctx, objectURL); err != nil {
			return removed, err
		}
		removed = append(removed, *fileObject(bucket, path))
	}

	return removed, nil
}

func (s *storageService) objectURL(bucket, path string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if !validSegment(bucket) || path == "" {
		return "", customerrors.ErrBadRequest
	}
	for _, segment := range strings.Split(path, "/") {
		if !validSegment(segment) {
			return "", customerrors.ErrBadRequest
		}
	}
	return url.Join(s.rootURL, bucket, path), nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.Contains(s, "\\")
}

func fileObject(bucket, path string) *models.FileObject {
	path = strings.TrimLeft(path, "/")
	return &models.FileObject{
		Bucket:   bucket,
		Path:     path,
		FullPath: bucket + "/" + path,
	}
}

func errObjectNotFound(bucket, path string) error {
	return &customerrors.BackendError{
		Status:  http.StatusNotFound,
		Code:    customerrors.CodeStorageNotFound,
		Message: "Object not found: " + bucket + "/" + path,
	}
}
