package liftcheck

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Photo intake limits.
const (
	// MaxPhotosPerItem caps every photo list (item, defect, carry-forward).
	MaxPhotosPerItem = 5

	// MaxPhotoSize is the maximum allowed file size (10MB).
	MaxPhotoSize = 10 * 1024 * 1024
)

// AcceptedImageTypes lists the accepted photo content types.
var AcceptedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
}

// Photo is an image captured during an inspection. The bytes live in
// FileStorage; the inspection only keeps this reference.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StorageKey  string    `json:"storageKey"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PhotoRejection reports one file skipped during batch intake.
type PhotoRejection struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Err returns the rejection as a domain error.
func (r PhotoRejection) Err() error {
	return &Error{Code: r.Code, Message: r.Message}
}

// IsAcceptedImageType checks if a content type is accepted.
func IsAcceptedImageType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return slices.Contains(AcceptedImageTypes, ct)
}

// CheckPhoto applies the per-file intake rules (type and size).
func CheckPhoto(filename, contentType string, size int64) error {
	if !IsAcceptedImageType(contentType) {
		return Errorf(EPHOTOTYPE, "%s: unsupported image type %q, must be JPEG, PNG, WebP or HEIC", displayName(filename), contentType)
	}
	if size > MaxPhotoSize {
		return Errorf(EPHOTOTOOLARGE, "%s exceeds maximum size of 10MB", displayName(filename))
	}
	return nil
}

// AppendPhotos appends batch to existing, enforcing the intake rules file by
// file. Invalid files and files beyond the MaxPhotosPerItem cap are skipped
// and reported; valid files in the same batch still commit. Existing photos
// are never dropped. Neither input slice is modified.
func AppendPhotos(existing, batch []Photo) ([]Photo, []PhotoRejection) {
	out := clonePhotos(existing)
	var rejected []PhotoRejection

	for _, p := range batch {
		if err := CheckPhoto(p.Filename, p.ContentType, p.Size); err != nil {
			rejected = append(rejected, rejectionFor(p.Filename, err))
			continue
		}
		if len(out) >= MaxPhotosPerItem {
			err := Errorf(EPHOTOLIMIT, "%s: maximum of %d photos reached", displayName(p.Filename), MaxPhotosPerItem)
			rejected = append(rejected, rejectionFor(p.Filename, err))
			continue
		}
		out = append(out, p)
	}
	return out, rejected
}

// validatePhotoList checks an already-assembled photo list, as submitted
// with defect details.
func validatePhotoList(photos []Photo) error {
	if len(photos) > MaxPhotosPerItem {
		return Errorf(EPHOTOLIMIT, "A maximum of %d photos is allowed", MaxPhotosPerItem)
	}
	for _, p := range photos {
		if err := CheckPhoto(p.Filename, p.ContentType, p.Size); err != nil {
			return err
		}
	}
	return nil
}

func rejectionFor(filename string, err error) PhotoRejection {
	return PhotoRejection{
		Filename: filename,
		Code:     ErrorCode(err),
		Message:  ErrorMessage(err),
	}
}

func displayName(filename string) string {
	if filename == "" {
		return "photo"
	}
	return fmt.Sprintf("%q", filename)
}

func clonePhotos(photos []Photo) []Photo {
	if photos == nil {
		return nil
	}
	return slices.Clone(photos)
}
