package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"log"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // WebP decoder registration
)

const octetStream = "application/octet-stream"

// ConvertImageToBase64 - raw bytes to standard base64 text
func ConvertImageToBase64(imageData []byte) string {
	base64Str := base64.StdEncoding.EncodeToString(imageData)
	log.Printf("🔄 Image converted to base64: %d bytes → %d chars", len(imageData), len(base64Str))
	return base64Str
}

// DataURI - data:<mediaType>;base64,<content> with the content left untouched
func DataURI(mediaType, base64Content string) string {
	return "data:" + mediaType + ";base64," + base64Content
}

// ResolveMediaType - the declared type wins; an empty or generic declaration
// falls back to sniffing the bytes. Nothing is rejected here.
func ResolveMediaType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != octetStream {
			return parsed
		}
	}
	sniffed := http.DetectContentType(data)
	if parsed, _, err := mime.ParseMediaType(sniffed); err == nil {
		return parsed
	}
	return sniffed
}

// ImageDimensions - pixel size for the preview; ok is false when the bytes are
// not a decodable image (the upload is still accepted)
func ImageDimensions(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// FileExtension - download file extension for a media type
func FileExtension(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/png":
		return "png"
	}
	if i := strings.IndexByte(mediaType, '/'); i >= 0 && i < len(mediaType)-1 {
		sub := mediaType[i+1:]
		if j := strings.IndexAny(sub, "+;"); j > 0 {
			sub = sub[:j]
		}
		return strings.ToLower(sub)
	}
	return "bin"
}
