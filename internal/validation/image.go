package validation

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// ImageInfo describes an upload that decoded successfully.
type ImageInfo struct {
	Format    string
	MIME      string
	Extension string
	Width     int
	Height    int
}

// ValidateImage checks that data is a JPEG, PNG, GIF or WebP image no larger
// than maxBytes. The declared content type, when given, must agree with the
// sniffed one.
func ValidateImage(data []byte, declaredType string, maxBytes int64) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("The submitted file is empty.")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("Image exceeds the %d MB upload limit.", maxBytes/(1024*1024))
	}
	invalid := fmt.Errorf("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

	if declared := normalizeContentType(declaredType); declared != "" && declared != "application/octet-stream" {
		if !isAllowedImageMIME(declared) {
			return nil, invalid
		}
		if sniffed := normalizeContentType(http.DetectContentType(data)); sniffed != "application/octet-stream" && !isMatchingContentType(declared, sniffed) {
			return nil, invalid
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, invalid
	}
	mimeType := decodedFormatToMime(format)
	if mimeType == "" || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, invalid
	}
	return &ImageInfo{
		Format:    format,
		MIME:      mimeType,
		Extension: formatExtension(format),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func formatExtension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpg"
	default:
		return "." + strings.ToLower(format)
	}
}
