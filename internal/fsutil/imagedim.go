package fsutil

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

// IsImageExtension reports whether ext (with or without a leading dot)
// names an image format whose dimensions ImageDimensions can read.
func IsImageExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png", "jpg", "jpeg", "gif", "webp":
		return true
	}
	return false
}

// ImageDimensions reads the pixel dimensions of an image file without
// decoding the full image. Returns ok=false for unreadable or non-image
// files.
func ImageDimensions(path string) (width, height int, ok bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, false
	}

	return config.Width, config.Height, true
}
