// Package service contains the business logic layer.
//
// This file implements thumbnail generation for payment-proof screenshots,
// so the admin review queue can show a small preview without fetching the
// full upload.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const proofThumbnailQuality = 85

// ThumbnailProcessor generates JPEG thumbnails from uploaded images.
type ThumbnailProcessor interface {
	// GenerateThumbnail creates a thumbnail fitting within maxWidth x
	// maxHeight while preserving aspect ratio. Output is always JPEG.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a ThumbnailProcessor backed by the imaging
// library.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(proofThumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
