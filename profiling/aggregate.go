package profiling

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
)

// AggregateResult is the outcome of profiling a directory of exports.
type AggregateResult struct {
	Profiles []Profile

	// FilesSeen counts .json files found in the directory.
	FilesSeen int
	// Skipped counts files that were unreadable or had no user messages.
	Skipped int
}

// Aggregator profiles every export in a directory, one file at a time.
type Aggregator struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewAggregator builds an Aggregator over p.
func NewAggregator(p *Pipeline, logger *slog.Logger) *Aggregator {
	if p == nil {
		p = NewPipeline(PipelineConfig{Logger: logger})
	}
	return &Aggregator{pipeline: p, logger: loggerOrDiscard(logger)}
}

// AggregateDir profiles the .json files directly inside dir, in directory-listing order.
// A file that cannot be read or has no user messages is skipped. The returned error is
// non-nil only when dir cannot be listed or ctx is done; profiles gathered before
// cancellation are still returned.
func (a *Aggregator) AggregateDir(ctx context.Context, dir string) (AggregateResult, error) {
	res := AggregateResult{Profiles: []Profile{}}

	files, err := collectExportFiles(dir)
	if err != nil {
		return res, err
	}
	res.FilesSeen = len(files)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("aggregate %s: %w", dir, err)
		}
		a.logger.Info("processing export", "file", filepath.Base(path), "index", i+1, "total", len(files))

		prof, ok, err := a.profileFile(ctx, path)
		if err != nil {
			a.logger.Error("skipping export", "file", path, "error", err)
			res.Skipped++
			continue
		}
		if !ok {
			a.logger.Info("skipping export without user messages", "file", path)
			res.Skipped++
			continue
		}
		res.Profiles = append(res.Profiles, prof)
	}
	return res, nil
}

func (a *Aggregator) profileFile(ctx context.Context, path string) (prof Profile, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("profile %s: panic: %v", path, r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, false, fmt.Errorf("read export: %w", err)
	}
	flat := a.pipeline.FlattenExport(ctx, data)
	if len(flat.UserMessages) == 0 {
		return Profile{}, false, nil
	}
	return a.pipeline.ProfileFor(ctx, flat), true, nil
}

func collectExportFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !fileutils.IsJSONFile(e.Name()) {
			continue
		}
		if !e.Type().IsRegular() && e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// WriteProfiles writes profiles as an indented JSON array, replacing path atomically.
func WriteProfiles(path string, profiles []Profile) error {
	if profiles == nil {
		profiles = []Profile{}
	}
	if err := fileutils.WriteJSONFileAtomic(path, profiles, true); err != nil {
		return fmt.Errorf("write profiles %s: %w", path, err)
	}
	return nil
}
