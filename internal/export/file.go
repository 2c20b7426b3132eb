package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netspeedtray/internal/history"
)

// Source supplies history points.
type Source interface {
	Points(ctx context.Context, q history.Query) ([]history.Point, error)
}

// Request describes one export to disk.
type Request struct {
	Kind Kind
	// Path is the output file. When empty a suggested name is placed in Dir.
	Path      string
	Dir       string
	Since     time.Duration
	Interface string
	Graph     GraphOptions
	Now       time.Time
}

// Result reports what was written.
type Result struct {
	Path    string
	Points  int
	Summary string
}

// DefaultDir returns the user's Documents folder, or the home directory when
// there is none.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	docs := filepath.Join(home, "Documents")
	if fi, err := os.Stat(docs); err == nil && fi.IsDir() {
		return docs
	}
	return home
}

// ToFile queries src and writes the requested format. Nothing is created
// when the range holds no data.
func ToFile(ctx context.Context, src Source, req Request) (Result, error) {
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	points, err := src.Points(ctx, Window(req.Since, req.Interface, req.Now))
	if err != nil {
		return Result{}, fmt.Errorf("load history: %w", err)
	}
	if len(points) == 0 {
		return Result{}, ErrNoData
	}

	path := req.Path
	if path == "" {
		dir := req.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		path = filepath.Join(dir, SuggestedName(req.Kind, req.Now))
	}

	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("create export file: %w", err)
	}

	switch req.Kind {
	case KindGraph:
		err = WriteGraph(f, points, req.Graph)
	case KindCSV:
		err = WriteCSV(f, points)
	default:
		err = fmt.Errorf("unknown export kind %q", req.Kind)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Result{}, err
	}

	return Result{Path: path, Points: len(points), Summary: Summary(points)}, nil
}
