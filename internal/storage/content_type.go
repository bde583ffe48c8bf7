package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
//  1. providedType, when non-empty
//  2. extension lookup via mime.TypeByExtension
//  3. content sniffing of the first 512 bytes, when data is available
//  4. "application/octet-stream"
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// allowedResumeTypes are the document formats accepted for resume uploads.
var allowedResumeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// allowedProofTypes are the formats accepted for payment proof uploads.
// Proofs are screenshots or scanned receipts, so images plus PDF.
var allowedProofTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// normalizeType strips parameters like charset and lowercases the base type.
func normalizeType(contentType string) string {
	baseType := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(baseType))
}

// IsAllowedResumeType checks if a content type is accepted for resume uploads.
func IsAllowedResumeType(contentType string) bool {
	return allowedResumeTypes[normalizeType(contentType)]
}

// IsAllowedProofType checks if a content type is accepted for payment proofs.
func IsAllowedProofType(contentType string) bool {
	return allowedProofTypes[normalizeType(contentType)]
}

// IsImage returns true if the content type is any image format.
func IsImage(contentType string) bool {
	return strings.HasPrefix(normalizeType(contentType), "image/")
}
