package service

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"
)

// DefaultExporter turns raw selections into upload-ready payloads. Images are
// normalised to JPEG; videos are passed through with a JPEG thumbnail.
type DefaultExporter struct {
	quality    int
	thumbnails ThumbnailGenerator
}

// NewDefaultExporter accepts a nil generator; videos then need a client thumbnail.
func NewDefaultExporter(cfg *config.AppConfig, thumbnails ThumbnailGenerator) *DefaultExporter {
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &DefaultExporter{quality: quality, thumbnails: thumbnails}
}

func (e *DefaultExporter) Export(ctx context.Context, asset Asset) (ExportedAsset, error) {
	if len(asset.Data) == 0 {
		return ExportedAsset{}, ErrDataUnavailable
	}

	switch asset.Kind {
	case constant.MediaKindImage:
		return e.exportImage(asset), nil
	case constant.MediaKindVideo:
		return e.exportVideo(ctx, asset)
	default:
		return ExportedAsset{}, fmt.Errorf("unsupported media kind %q: %w", asset.Kind, ErrDataUnavailable)
	}
}

func (e *DefaultExporter) exportImage(asset Asset) ExportedAsset {
	data, width, height, err := e.toJPEG(asset.Data)
	if err != nil {
		slog.Warn("Image could not be decoded, sending original bytes", "index", asset.Index, "error", err)
		return ExportedAsset{
			Data:        asset.Data,
			ContentType: helper.DetectContentType(asset.Data),
			Extension:   constant.ExtensionJPG,
			Width:       asset.Width,
			Height:      asset.Height,
		}
	}

	return ExportedAsset{
		Data:        data,
		ContentType: "image/jpeg",
		Extension:   constant.ExtensionJPG,
		Width:       width,
		Height:      height,
	}
}

func (e *DefaultExporter) exportVideo(ctx context.Context, asset Asset) (ExportedAsset, error) {
	if !isVideoContainer(asset.Data) {
		return ExportedAsset{}, ErrDataUnavailable
	}

	thumb := asset.Thumbnail
	if len(thumb) == 0 && e.thumbnails != nil {
		generated, err := e.thumbnails.Generate(ctx, asset.Data)
		if err != nil {
			return ExportedAsset{}, fmt.Errorf("%w: %v", ErrThumbnailGenerationFailed, err)
		}
		thumb = generated
	}
	if len(thumb) == 0 {
		return ExportedAsset{}, ErrThumbnailGenerationFailed
	}

	width, height := asset.Width, asset.Height
	if data, w, h, err := e.toJPEG(thumb); err == nil {
		thumb, width, height = data, w, h
	}

	return ExportedAsset{
		Data:        asset.Data,
		ContentType: "video/mp4",
		Extension:   constant.ExtensionMP4,
		Width:       width,
		Height:      height,
		Thumbnail:   thumb,
	}, nil
}

func (e *DefaultExporter) toJPEG(data []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// isVideoContainer checks for an ISO base media "ftyp" box (mp4, mov, m4v).
func isVideoContainer(data []byte) bool {
	return len(data) >= 12 && string(data[4:8]) == "ftyp"
}
