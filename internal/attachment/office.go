package attachment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Converter turns an office document into PDF bytes.
type Converter interface {
	ToPDF(ctx context.Context, data []byte, ext string) ([]byte, error)
}

var ErrProtected = errors.New("document is password protected")

// LibreOffice converts documents with a headless soffice, one isolated profile per call.
type LibreOffice struct {
	binary    string
	timeout   time.Duration
	semaphore chan struct{}
}

// NewLibreOffice looks up the soffice binary. maxWorkers caps concurrent conversions.
func NewLibreOffice(maxWorkers int, timeout time.Duration) (*LibreOffice, error) {
	bin, err := lookupOffice()
	if err != nil {
		return nil, err
	}
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &LibreOffice{binary: bin, timeout: timeout, semaphore: make(chan struct{}, maxWorkers)}, nil
}

func lookupOffice() (string, error) {
	for _, name := range []string{"soffice", "libreoffice"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("LibreOffice not found in PATH")
}

func (l *LibreOffice) ToPDF(ctx context.Context, data []byte, ext string) ([]byte, error) {
	select {
	case l.semaphore <- struct{}{}:
		defer func() { <-l.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	start := time.Now()

	workDir, err := os.MkdirTemp("", "assistcore_convert_")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input"+normalizeExt(ext))
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}
	profileDir := filepath.Join(workDir, "profile_"+uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, l.binary,
		"-env:UserInstallation=file://"+profileDir,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", workDir,
		input,
	)
	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("LibreOffice command")

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("conversion timeout after %v", l.timeout)
		}
		if looksProtected(string(out)) {
			return nil, ErrProtected
		}
		return nil, fmt.Errorf("conversion failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, "input.pdf"))
	if err != nil {
		return nil, fmt.Errorf("output file not created: %w", err)
	}
	log.Info().Str("ext", ext).Int("size", len(pdf)).Dur("duration", time.Since(start)).Msg("conversion successful")
	return pdf, nil
}

func looksProtected(output string) bool {
	o := strings.ToLower(output)
	return strings.Contains(o, "password") || strings.Contains(o, "encrypted") || strings.Contains(o, "protected")
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return ".bin"
	}
	return "." + ext
}
