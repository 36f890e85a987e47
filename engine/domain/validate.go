package domain

import (
	"os"
	"path/filepath"
	"strings"
)

// Media extensions the transcription service accepts.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".m4a":  true,
	".wav":  true,
	".webm": true,
	".mov":  true,
	".mkv":  true,
	".flac": true,
	".ogg":  true,
}

// ValidateMediaFile checks that path names an existing regular file with a
// supported media extension.
func ValidateMediaFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return NewValidationError(path, ErrFileNotFound)
	}
	if !info.Mode().IsRegular() {
		return NewValidationError(path, ErrNotRegularFile)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return NewValidationError(path, ErrUnsupportedMedia)
	}
	return nil
}

// ValidateMediaFiles validates every path, failing on the first bad one.
func ValidateMediaFiles(paths []string) error {
	for _, p := range paths {
		if err := ValidateMediaFile(p); err != nil {
			return err
		}
	}
	return nil
}
