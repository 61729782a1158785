package docextract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes caps how much of an uploaded PDF we are willing to read.
const maxPDFBytes = 32 << 20

// ExtractPDFText extracts plain text from a PDF stream. Returns an empty
// string (and no error) when the document has no extractable text.
func ExtractPDFText(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", nil
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}
