package attach

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// previewMaxChars caps how much extracted text a preview carries
const previewMaxChars = 1200

// Preview extracts a short text preview from a PDF so the user can confirm
// what they are about to upload. Non-PDF files return an empty preview
// without error; only PDFs carry extractable text here.
func Preview(path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", nil
	}
	return PreviewPDF(path)
}

// PreviewPDF extracts text from the first pages of a PDF file
func PreviewPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var parts []string
	total := 0
	for i := 0; i < doc.NumPage() && total < previewMaxChars; i++ {
		text, err := doc.Text(i)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		text = strings.TrimSpace(text)
		parts = append(parts, text)
		total += len(text)
	}

	preview := strings.Join(parts, "\n\n")
	if len(preview) > previewMaxChars {
		preview = preview[:previewMaxChars] + "..."
	}
	return preview, nil
}
