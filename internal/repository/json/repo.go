package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"etgcatalog/internal/repository"
)

type Repo struct {
	Path string
	Log  *slog.Logger
}

func New(path string, log *slog.Logger) *Repo {
	if log == nil {
		log = slog.Default()
	}
	return &Repo{Path: path, Log: log}
}

func (r *Repo) Save(ctx context.Context, snap repository.CatalogSnapshot) error {
	if err := r.saveAny(ctx, snap); err != nil {
		return err
	}
	r.Log.Info("json saved", "path", r.Path, "count", len(snap.Products))
	return nil
}

// saveAny writes v to a temp file in the target directory and renames it over Path.
func (r *Repo) saveAny(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Path == "" {
		return fmt.Errorf("jsonfile repo: empty path")
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(r.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}
