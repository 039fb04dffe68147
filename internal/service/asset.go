package service

import (
	"EnclosureAPI/internal/constant"
	"errors"
	"fmt"
)

// Asset is one selected photo or video, in selection order.
type Asset struct {
	Index     int
	LocalID   string
	Kind      constant.MediaKind
	FileName  string
	Data      []byte
	Thumbnail []byte
	Width     int
	Height    int
}

type ExportedAsset struct {
	Data        []byte
	ContentType string
	Extension   string
	Width       int
	Height      int
	Thumbnail   []byte
}

type UploadedAsset struct {
	Index             int
	ModelID           string
	Kind              constant.MediaKind
	URL               string
	FileName          string
	ThumbnailURL      string
	ThumbnailFileName string
	Width             int
	Height            int
	LocalPath         string
}

type AssetOutcome struct {
	Index    int
	LocalID  string
	Uploaded *UploadedAsset
	Err      error
}

// UploadTarget selects where a batch lands in the content store.
type UploadTarget struct {
	Conversation    constant.ConversationKind
	ConversationKey string
	BatchModelID    string
}

type BatchOutcome struct {
	Outcomes []AssetOutcome
}

// Successes returns the uploaded assets in original order.
func (b BatchOutcome) Successes() []UploadedAsset {
	out := make([]UploadedAsset, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Err == nil && o.Uploaded != nil {
			out = append(out, *o.Uploaded)
		}
	}
	return out
}

func (b BatchOutcome) Failures() []AssetOutcome {
	var out []AssetOutcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

var (
	ErrDataUnavailable           = errors.New("asset data unavailable")
	ErrDownloadURLMissing        = errors.New("download url missing")
	ErrThumbnailGenerationFailed = errors.New("thumbnail generation failed")
	ErrAllUploadsFailed          = errors.New("all uploads failed")
	ErrInvalidTransition         = errors.New("invalid send state transition")
)

type UploadFailedError struct {
	Reason string
	Err    error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed: %s", e.Reason)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

// ErrorKind names the failure category of an asset error.
func ErrorKind(err error) string {
	var uploadErr *UploadFailedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "dataUnavailable"
	case errors.Is(err, ErrDownloadURLMissing):
		return "downloadURLMissing"
	case errors.Is(err, ErrThumbnailGenerationFailed):
		return "thumbnailGenerationFailed"
	case errors.As(err, &uploadErr):
		return "uploadFailed"
	default:
		return "unknown"
	}
}
