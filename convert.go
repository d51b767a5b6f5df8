package goslides

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// rasterExtensions is the set of image encodings the model consumes without
// conversion.
var rasterExtensions = map[string]bool{
	"bmp":  true,
	"jpg":  true,
	"jpeg": true,
	"pgm":  true,
	"png":  true,
	"ppm":  true,
	"tif":  true,
	"tiff": true,
	"webp": true,
}

// isRasterExt reports whether ext (without dot, any case) is directly
// consumable.
func isRasterExt(ext string) bool {
	return rasterExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// Converter is the external image conversion collaborator: it transcodes a
// blob from one encoding to another. Calls are synchronous and may fail.
type Converter interface {
	Convert(ctx context.Context, data []byte, srcExt, dstExt string) ([]byte, error)
}

// SofficeConverter shells out to a headless LibreOffice to convert vector
// image formats (wmf, emf) into raster copies. Each attempt runs the
// converter in a fresh temporary directory; attempts are retried with a
// fixed backoff until the budget is exhausted.
type SofficeConverter struct {
	Binary   string        // converter binary, default "soffice"
	Attempts int           // attempt budget, default 5
	Backoff  time.Duration // fixed wait between attempts, default 3s
	Logger   *slog.Logger
}

// NewSofficeConverter returns a converter with the default retry budget.
func NewSofficeConverter(logger *slog.Logger) *SofficeConverter {
	return &SofficeConverter{Logger: logger}
}

func (c *SofficeConverter) defaults() (string, int, time.Duration, *slog.Logger) {
	bin := c.Binary
	if bin == "" {
		bin = "soffice"
	}
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 5
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return bin, attempts, backoff, logger
}

// Convert transcodes data from srcExt to dstExt. On retry exhaustion it
// returns a ConversionFailedError wrapping the last attempt's error.
func (c *SofficeConverter) Convert(ctx context.Context, data []byte, srcExt, dstExt string) ([]byte, error) {
	bin, attempts, backoff, logger := c.defaults()
	srcExt = strings.ToLower(strings.TrimPrefix(srcExt, "."))
	dstExt = strings.ToLower(strings.TrimPrefix(dstExt, "."))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.convertOnce(ctx, bin, data, srcExt, dstExt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		logger.Warn("image conversion attempt failed",
			"attempt", attempt, "src", srcExt, "dst", dstExt, "error", err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &ConversionFailedError{SourceFormat: srcExt, TargetFormat: dstExt, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	return nil, &ConversionFailedError{SourceFormat: srcExt, TargetFormat: dstExt, Attempts: attempts, Err: lastErr}
}

func (c *SofficeConverter) convertOnce(ctx context.Context, bin string, data []byte, srcExt, dstExt string) ([]byte, error) {
	tmp, err := os.MkdirTemp("", "goslides-convert-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	src := filepath.Join(tmp, "blob."+srcExt)
	if err := os.WriteFile(src, data, 0o644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", dstExt, src, "--outdir", tmp)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", bin, err, strings.TrimSpace(string(out)))
	}

	dst := filepath.Join(tmp, "blob."+dstExt)
	converted, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("converter produced no output: %w", err)
	}
	return converted, nil
}
