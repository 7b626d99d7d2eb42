package attachment

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

var pdfcpuOnce sync.Once

// PageCount validates data as a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	pdfcpuOnce.Do(api.DisableConfigDir)
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// ExtractPDFText returns the cleaned text of the first maxPages pages, separated by blank
// lines. Pages that fail to extract are skipped.
func ExtractPDFText(data []byte, maxPages int) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	var pages []string
	for i := 0; i < n; i++ {
		raw, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("failed to extract text from page")
			continue
		}
		if t := cleanText(raw, i+1); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// cleanText drops page numbers, short all-caps headers, boilerplate footers and
// symbol-only lines, then rejoins lines broken mid-sentence.
func cleanText(text string, pageNum int) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || isPageNumber(t, pageNum) || isHeaderFooter(t) || isNoise(t) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.TrimSpace(joinBrokenLines(kept))
}

func isPageNumber(line string, pageNum int) bool {
	for _, p := range []string{
		fmt.Sprintf("%d", pageNum),
		fmt.Sprintf("page %d", pageNum),
		fmt.Sprintf("- %d -", pageNum),
		fmt.Sprintf("[%d]", pageNum),
	} {
		if strings.EqualFold(line, p) {
			return true
		}
	}
	return false
}

var footerMarkers = []string{"CONFIDENTIAL", "COPYRIGHT", "ALL RIGHTS RESERVED", "PROPRIETARY"}

func isHeaderFooter(line string) bool {
	if len(line) < 3 {
		return true
	}
	upper := strings.ToUpper(line)
	if len(line) < 50 && upper == line && len(strings.Fields(line)) <= 2 {
		return true
	}
	if len(line) < 100 {
		for _, m := range footerMarkers {
			if strings.Contains(upper, m) {
				return true
			}
		}
	}
	return false
}

func isNoise(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// joinBrokenLines merges a line with the next one when it does not end a sentence and the
// next starts in lower case.
func joinBrokenLines(lines []string) string {
	var out []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		for i+1 < len(lines) && !endsSentence(line) && !strings.HasSuffix(line, "-") && startsLower(lines[i+1]) {
			line += " " + lines[i+1]
			i++
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func endsSentence(s string) bool {
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

func startsLower(s string) bool { return s[0] >= 'a' && s[0] <= 'z' }
