package attach

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// File is a locally selected attachment that has not been uploaded yet. It
// becomes durable only once the gateway returns a persisted FileAttachment.
type File struct {
	ID       uuid.UUID
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// FromPath builds a pending attachment from a local file path
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return File{
		ID:       uuid.New(),
		Path:     path,
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Size:     info.Size(),
	}, nil
}

// Read loads the attachment bytes for upload
func (f File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// IsPDF reports whether the attachment looks like a PDF
func (f File) IsPDF() bool {
	return strings.EqualFold(filepath.Ext(f.Name), ".pdf")
}
