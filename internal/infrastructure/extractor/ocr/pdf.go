package ocr

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PageSource exposes the page count and embedded text layer of a PDF.
type PageSource interface {
	NumPage() int
	PageText(page int) (string, error)
	io.Closer
}

type pdfSource struct {
	closer io.Closer
	reader *pdf.Reader
}

func openPDF(path string) (PageSource, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfSource{closer: file, reader: reader}, nil
}

func (s *pdfSource) NumPage() int {
	return s.reader.NumPage()
}

// PageText reads the text layer of a 1-based page. Broken content streams
// make the parser panic, so a panic is reported as an error.
func (s *pdfSource) PageText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read text layer of page %d: %v", page, r)
		}
	}()
	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (s *pdfSource) Close() error {
	return s.closer.Close()
}
