package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PDFText extracts the text layer of a PDF with poppler's pdftotext.
type PDFText struct {
	// Path is the pdftotext binary; looked up on $PATH when bare.
	Path string
	// TempDir holds the staged input file. Empty means os.TempDir().
	TempDir string
}

// NewPDFText creates a PDF extractor using the given pdftotext binary.
func NewPDFText(path, tempDir string) *PDFText {
	if path == "" {
		path = "pdftotext"
	}
	return &PDFText{Path: path, TempDir: tempDir}
}

// Extract writes the PDF to a temp file and runs
// "pdftotext -layout -enc UTF-8 <file> -", returning stdout.
func (p *PDFText) Extract(ctx context.Context, name string, data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("%s: missing PDF header: %w", name, ErrUnsupportedType)
	}

	f, err := os.CreateTemp(p.TempDir, "plan-*.pdf")
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", name, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("staging %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("staging %s: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, p.Path, "-layout", "-enc", "UTF-8", filepath.Clean(tmp), "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext %s: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	// Page breaks come through as form feeds.
	return strings.ReplaceAll(stdout.String(), "\f", "\n"), nil
}
