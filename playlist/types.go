package playlist

import (
	"path/filepath"
	"strings"
)

// ImageExtensions are shown as still pictures.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// VideoExtensions are handed to the video player.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".h264": true,
	".ts":   true,
}

// IsImage reports whether path has a still image extension.
func IsImage(path string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsSupported reports whether path can be played at all.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ImageExtensions[ext] || VideoExtensions[ext]
}
