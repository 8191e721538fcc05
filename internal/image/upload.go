package image

import (
	"fmt"
	"mime"
	"mime/multipart"
	"strings"
)

// Reason identifies why an upload batch was rejected.
type Reason string

const (
	ReasonNoFiles         Reason = "no-files"
	ReasonTooManyFiles    Reason = "too-many-files"
	ReasonUnsupportedType Reason = "unsupported-type"
	ReasonTooLarge        Reason = "too-large"
)

// ValidationError rejects an upload batch before any object is written.
type ValidationError struct {
	Reason Reason
	File   string
}

func (e *ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("invalid upload %q: %s", e.File, e.Reason)
	}
	return "invalid upload: " + string(e.Reason)
}

// Message is the client-facing text for the rejection.
func (e *ValidationError) Message() string {
	switch e.Reason {
	case ReasonTooLarge:
		return "File is too large"
	case ReasonUnsupportedType:
		return "File format is not supported"
	case ReasonTooManyFiles:
		return "File limit reached"
	default:
		return "No files provided"
	}
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
}

// Limits bounds an upload batch.
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// DefaultLimits allows 10 files of at most 2,500,000 bytes each.
var DefaultLimits = Limits{MaxFiles: 10, MaxFileSize: 2_500_000}

// RequestBytes is the largest multipart body worth reading for these limits.
func (l Limits) RequestBytes() int64 {
	return int64(l.MaxFiles)*l.MaxFileSize + 1<<20
}

// Validate checks the batch as a whole, then every file's type and size.
func (l Limits) Validate(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return &ValidationError{Reason: ReasonNoFiles}
	}
	if len(files) > l.MaxFiles {
		return &ValidationError{Reason: ReasonTooManyFiles}
	}
	for _, fh := range files {
		if !allowedTypes[contentType(fh)] {
			return &ValidationError{Reason: ReasonUnsupportedType, File: fh.Filename}
		}
		if fh.Size > l.MaxFileSize {
			return &ValidationError{Reason: ReasonTooLarge, File: fh.Filename}
		}
	}
	return nil
}

// contentType returns the part's media type, lower-cased and without parameters.
func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
