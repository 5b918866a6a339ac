package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
	"github.com/kilianp07/npiscenarios/pkg/export"
)

// FileConfig configures a FileSink. The {mode} and {run} placeholders in
// Path and FitsPath are replaced by the run mode and ID.
type FileConfig struct {
	Path     string `json:"path"`
	FitsPath string `json:"fits_path"`
	// Format is "csv" or "json". Empty means the extension of Path.
	Format string `json:"format"`
}

// FileSink writes each table to a file.
type FileSink struct {
	cfg FileConfig
}

// NewFileSink validates cfg and returns the sink.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, model.ConfigErrorf("file sink: path is required")
	}
	if cfg.Format == "" {
		cfg.Format = strings.TrimPrefix(filepath.Ext(cfg.Path), ".")
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != "csv" && cfg.Format != "json" {
		return nil, model.ConfigErrorf("file sink: unsupported format %q", cfg.Format)
	}
	return &FileSink{cfg: cfg}, nil
}

// Write implements sink.Sink.
func (s *FileSink) Write(_ context.Context, run coresink.Run, table model.Table) error {
	return writeFile(expand(s.cfg.Path, run), func(w io.Writer) error {
		if s.cfg.Format == "json" {
			return export.WriteJSON(w, table)
		}
		return export.WriteCSV(w, table)
	})
}

// WriteFits implements sink.FitRecorder. Nothing is written without a
// fits path.
func (s *FileSink) WriteFits(_ context.Context, run coresink.Run, fits []calibrate.Fit) error {
	if s.cfg.FitsPath == "" {
		return nil
	}
	return writeFile(expand(s.cfg.FitsPath, run), func(w io.Writer) error {
		if s.cfg.Format == "json" {
			return export.WriteFitsJSON(w, fits)
		}
		return export.WriteFitsCSV(w, fits)
	})
}

// Close implements sink.Sink.
func (s *FileSink) Close() error { return nil }

func expand(path string, run coresink.Run) string {
	return strings.NewReplacer("{mode}", run.Mode, "{run}", run.ID.String()).Replace(path)
}

func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
