package attachment

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/local/assistcore/internal/ai"
)

// Preparer fills in MIME type, size and extracted text for inline attachments.
type Preparer struct {
	maxPages  int
	maxChars  int
	maxBytes  int64
	converter Converter
}

type Options struct {
	MaxPages int   // PDF pages read; default 20
	MaxChars int   // extracted text kept; default 20000
	MaxBytes int64 // larger inline payloads are rejected; default 20 MiB
	// Converter turns office documents into PDF first. Nil leaves them without text.
	Converter Converter
}

func NewPreparer(opts Options) *Preparer {
	p := &Preparer{maxPages: opts.MaxPages, maxChars: opts.MaxChars, maxBytes: opts.MaxBytes, converter: opts.Converter}
	if p.maxPages <= 0 {
		p.maxPages = 20
	}
	if p.maxChars <= 0 {
		p.maxChars = 20000
	}
	if p.maxBytes <= 0 {
		p.maxBytes = 20 << 20
	}
	return p
}

// Prepare returns a with sniffed metadata and, for text and PDF payloads, ExtractedText.
// Attachments without inline data, or that already carry text, keep what they have.
func (p *Preparer) Prepare(ctx context.Context, a ai.Attachment) (ai.Attachment, error) {
	if len(a.InlineData) == 0 {
		return a, nil
	}
	if err := ctx.Err(); err != nil {
		return a, err
	}
	if int64(len(a.InlineData)) > p.maxBytes {
		return a, fmt.Errorf("attachment %q is %d bytes, limit %d", a.DisplayName, len(a.InlineData), p.maxBytes)
	}

	info := Detect(a.InlineData)
	a.SizeBytes = int64(len(a.InlineData))
	if a.MimeType == "" || a.MimeType == "application/octet-stream" {
		a.MimeType = info.MIMEType
	}
	log.Debug().
		Str("attachment", a.DisplayName).
		Str("mime", info.MIMEType).
		Str("class", string(info.Class)).
		Msg("detected attachment type")

	if a.ExtractedText != "" {
		return a, nil
	}
	switch info.Class {
	case ClassText:
		if utf8.Valid(a.InlineData) {
			a.ExtractedText = truncate(string(a.InlineData), p.maxChars)
		}
	case ClassPDF:
		text, err := p.pdfText(a.InlineData)
		if err != nil {
			return a, err
		}
		if text == "" {
			return p.asScan(a)
		}
		a.ExtractedText = text
	case ClassOffice:
		if p.converter == nil {
			return a, nil
		}
		pdf, err := p.converter.ToPDF(ctx, a.InlineData, info.Extension)
		if err != nil {
			return a, fmt.Errorf("convert %s: %w", info.Description, err)
		}
		if a.ExtractedText, err = p.pdfText(pdf); err != nil {
			return a, err
		}
	}
	return a, nil
}

func (p *Preparer) pdfText(pdf []byte) (string, error) {
	pages, err := PageCount(pdf)
	if err != nil {
		return "", err
	}
	text, err := ExtractPDFText(pdf, p.maxPages)
	if err != nil || text == "" {
		return "", err
	}
	if pages > p.maxPages {
		text += fmt.Sprintf("\n\n[only the first %d of %d pages were read]", p.maxPages, pages)
	}
	return truncate(text, p.maxChars), nil
}

// asScan replaces a PDF without a text layer by an image of its first page.
func (p *Preparer) asScan(a ai.Attachment) (ai.Attachment, error) {
	img, err := RenderPageJPEG(a.InlineData, 1, 100, 80)
	if err != nil {
		return a, err
	}
	a.InlineData = img
	a.MimeType = "image/jpeg"
	a.SizeBytes = int64(len(img))
	return a, nil
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
