package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"

	"document-qa/internal/models"
)

// Supported reports whether the file name carries an extension the extractor understands.
func Supported(filename string) bool {
	return slices.Contains(models.SupportedExtensions, filepath.Ext(filename))
}

// ExtractText returns the full text of a .txt or .pdf file.
// Text files are returned verbatim; PDF pages are concatenated in page order.
func ExtractText(filePath string) (string, error) {
	switch ext := filepath.Ext(filePath); ext {
	case ".txt":
		return parseText(filePath)
	case ".pdf":
		return parsePDF(filePath)
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parsePDF(filePath string) (text string, err error) {
	// ledongthuc/pdf panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", filepath.Base(filePath), r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filepath.Base(filePath), err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
