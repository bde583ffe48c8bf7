// Package storage provides object storage for uploaded resumes and
// subscription payment proofs.
//
// Two implementations satisfy the Storage interface:
// - LocalStorage: filesystem storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is the interface for object storage operations. All methods are
// context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key. Returns ErrKeyExists when the key
	// is already taken and opts.Overwrite is false, and ErrTooLarge when the
	// data exceeds opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the object at the specified key. The caller must close
	// the returned reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent: deleting a
	// missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns an access URL for the object. Implementations may return a
	// permanent public URL or a presigned URL valid for the given duration.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type of the object. If empty, it is detected
	// from the key's extension or the content itself.
	ContentType string

	// MaxSize is the maximum allowed size in bytes. Zero means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object publicly readable. Payment proofs and resumes
	// are always private; this exists for assets like generated thumbnails.
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // Empty for local storage
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored,
	// e.g. "./storage" or "/var/lib/skillora/files".
	BasePath string

	// BaseURL is the public URL prefix for accessing files,
	// e.g. "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public URL when served through a custom
	// domain. If empty, presigned URLs are used for all access.
	PublicURL string

	// Region is required by the AWS SDK; R2 accepts "auto".
	Region string
}

// Provider names accepted in configuration.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// =============================================================================
// Key Generation Helpers
// =============================================================================

// ResumeKey generates a storage key for an uploaded resume.
// Format: resumes/{userID}/{uuid}{ext}
func ResumeKey(userID uuid.UUID, filename string) string {
	return fmt.Sprintf("resumes/%s/%s%s", userID, uuid.New(), filepath.Ext(filename))
}

// ProofKey generates a storage key for a subscription payment proof.
// Format: proofs/{userID}/{uuid}{ext}
func ProofKey(userID uuid.UUID, filename string) string {
	return fmt.Sprintf("proofs/%s/%s%s", userID, uuid.New(), filepath.Ext(filename))
}

// ProofThumbnailKey generates a storage key for a payment proof thumbnail.
// Thumbnails are always re-encoded as JPEG.
// Format: proofs/{userID}/thumbnails/{uuid}.jpg
func ProofThumbnailKey(userID uuid.UUID) string {
	return fmt.Sprintf("proofs/%s/thumbnails/%s.jpg", userID, uuid.New())
}
