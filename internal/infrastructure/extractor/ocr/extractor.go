// Package ocr extracts text from scanned PDFs and images with tesseract,
// rendering PDF pages through pdftoppm and preferring an embedded text
// layer when the page has one.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const (
	DefaultPageCap       = 3
	DefaultDPI           = 300
	DefaultLanguage      = "eng"
	DefaultMaxImageWidth = 3000

	// A text layer shorter than this is treated as absent and the page is
	// OCRed instead.
	minTextLayerChars = 20
)

type Config struct {
	TesseractPath string
	PdftoppmPath  string
	Language      string
	DPI           int
	PageCap       int
	MaxImageWidth int
	TextLayer     bool
	TempDir       string
}

type Extractor struct {
	cfg      Config
	runner   Runner
	openPDF  func(path string) (PageSource, error)
	lookPath func(file string) (string, error)
	logger   *slog.Logger
}

func New(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.PageCap <= 0 {
		cfg.PageCap = DefaultPageCap
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:      cfg,
		runner:   runner,
		openPDF:  openPDF,
		lookPath: exec.LookPath,
		logger:   logger,
	}
}

// Check verifies that the OCR binaries are installed. A failure here is a
// startup configuration error.
func (e *Extractor) Check(context.Context) error {
	for _, bin := range []string{e.cfg.TesseractPath, e.cfg.PdftoppmPath} {
		if _, err := e.lookPath(bin); err != nil {
			return domain.WrapError(domain.ErrExtractorUnavailable, "ocr check", err)
		}
	}
	return nil
}

func (e *Extractor) Extract(ctx context.Context, path string) (domain.ExtractedText, error) {
	ext := domain.NormalizeExtension(path)
	if !domain.IsSupportedExtension(ext) {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrUnsupportedFormat, "ocr extract", fmt.Errorf("extension %q", ext))
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ExtractedText{}, domain.WrapError(domain.ErrSourceMissing, "ocr extract", err)
		}
		return domain.ExtractedText{}, domain.WrapError(domain.ErrTemporary, "ocr extract", err)
	}

	workDir, err := os.MkdirTemp(e.cfg.TempDir, "scan-ocr-*")
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrTemporary, "ocr workdir", err)
	}
	defer os.RemoveAll(workDir)

	if ext == domain.PDFExtension {
		return e.extractPDF(ctx, path, workDir)
	}

	text, err := e.extractImage(ctx, path, workDir)
	if err != nil {
		return domain.ExtractedText{}, err
	}
	return domain.ExtractedText{SourcePath: path, Text: text, PageCount: 1}, nil
}

func (e *Extractor) extractImage(ctx context.Context, path, workDir string) (string, error) {
	input, err := downscale(path, workDir, e.cfg.MaxImageWidth)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "ocr downscale", err)
	}
	return e.recognize(ctx, input)
}

func (e *Extractor) extractPDF(ctx context.Context, path, workDir string) (domain.ExtractedText, error) {
	source, err := e.openPDF(path)
	if err != nil {
		e.logger.Debug("pdf_parse_failed", "file", path, "error", err)
		return e.extractRenderedPDF(ctx, path, workDir, err)
	}
	defer source.Close()

	total := source.NumPage()
	if total <= 0 {
		return e.extractRenderedPDF(ctx, path, workDir, errors.New("document has no pages"))
	}
	pages := min(total, e.cfg.PageCap)

	parts := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		text, err := e.pageText(ctx, source, path, workDir, page)
		if err != nil {
			return domain.ExtractedText{}, err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	if total > pages {
		e.logger.Debug("pdf_pages_capped", "file", path, "pages", total, "cap", pages)
	}
	return domain.ExtractedText{
		SourcePath: path,
		Text:       strings.Join(parts, "\n\n"),
		PageCount:  total,
		Truncated:  total > pages,
	}, nil
}

// extractRenderedPDF OCRs a PDF the Go parser could not read, relying on
// pdftoppm alone. Rendering stops at the first page pdftoppm rejects after
// page 1; a page 1 failure usually means the file is still being written
// and is reported as temporary.
func (e *Extractor) extractRenderedPDF(ctx context.Context, path, workDir string, parseErr error) (domain.ExtractedText, error) {
	var parts []string
	rendered := 0
	for page := 1; page <= e.cfg.PageCap; page++ {
		image, err := e.renderPage(ctx, path, workDir, page, e.cfg.DPI)
		if err != nil {
			if domain.IsKind(err, domain.ErrExtractorUnavailable) {
				return domain.ExtractedText{}, err
			}
			if page == 1 {
				return domain.ExtractedText{}, domain.WrapError(domain.ErrTemporary, "ocr pdf", errors.Join(parseErr, err))
			}
			break
		}
		rendered++
		text, err := e.recognize(ctx, image)
		if err != nil {
			return domain.ExtractedText{}, err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	truncated := false
	if rendered == e.cfg.PageCap {
		// A cheap low-resolution render tells whether a page past the cap exists.
		_, err := e.renderPage(ctx, path, workDir, rendered+1, 1)
		truncated = err == nil
	}
	pageCount := rendered
	if truncated {
		pageCount++
	}
	return domain.ExtractedText{
		SourcePath: path,
		Text:       strings.Join(parts, "\n\n"),
		PageCount:  pageCount,
		Truncated:  truncated,
	}, nil
}

func (e *Extractor) pageText(ctx context.Context, source PageSource, path, workDir string, page int) (string, error) {
	if e.cfg.TextLayer {
		text, err := source.PageText(page)
		if err != nil {
			e.logger.Debug("pdf_text_layer_unreadable", "file", path, "page", page, "error", err)
		} else if text = strings.TrimSpace(text); len(text) >= minTextLayerChars {
			return text, nil
		}
	}

	image, err := e.renderPage(ctx, path, workDir, page, e.cfg.DPI)
	if err != nil {
		return "", err
	}
	return e.recognize(ctx, image)
}

func (e *Extractor) renderPage(ctx context.Context, path, workDir string, page, dpi int) (string, error) {
	n := strconv.Itoa(page)
	prefix := filepath.Join(workDir, "page-"+n)
	_, err := e.runner.Run(ctx, e.cfg.PdftoppmPath,
		"-r", strconv.Itoa(dpi),
		"-f", n, "-l", n,
		"-singlefile", "-png",
		path, prefix,
	)
	if err != nil {
		return "", commandError("pdftoppm", err)
	}
	return prefix + ".png", nil
}

func (e *Extractor) recognize(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner.Run(ctx, e.cfg.TesseractPath, imagePath, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", commandError("tesseract", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func commandError(tool string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrExtractorUnavailable, tool, err)
	}
	return domain.WrapError(domain.ErrTemporary, tool, err)
}
