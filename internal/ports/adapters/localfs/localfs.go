// Package localfs serves cue payloads saved on disk, one directory per
// content id:
//
//	<root>/<id>/seg_001.so ... seg_NNN.so
//	<root>/<id>/view.bin
//	<root>/<id>/legacy.xml
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	viewFile   = "view.bin"
	legacyFile = "legacy.xml"
)

func segFile(i int) string { return fmt.Sprintf("seg_%03d.so", i) }

type Dir struct {
	root string
}

func New(root string) *Dir { return &Dir{root: root} }

func (d *Dir) path(id string, name string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid content id %q", id)
	}
	return filepath.Join(d.root, id, name), nil
}

// FetchSegments reads segments 1..count. Missing files are skipped; it is
// an error only when none exist.
func (d *Dir) FetchSegments(ctx context.Context, id string, count int) ([][]byte, error) {
	var out [][]byte
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := d.path(id, segFile(i))
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return out, err
		}
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no segments for %s under %s", id, d.root)
	}
	return out, nil
}

func (d *Dir) FetchView(ctx context.Context, id string) ([]byte, error) {
	return d.read(ctx, id, viewFile)
}

func (d *Dir) FetchLegacy(ctx context.Context, id string) ([]byte, error) {
	return d.read(ctx, id, legacyFile)
}

func (d *Dir) read(ctx context.Context, id, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(id, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Payloads is everything saved for one content id. Nil parts are skipped.
type Payloads struct {
	Segments [][]byte
	View     []byte
	Legacy   []byte
}

// Save writes p under root/id, replacing earlier segment files.
func (d *Dir) Save(id string, p Payloads) (string, error) {
	dir, err := d.path(id, "")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	old, _ := filepath.Glob(filepath.Join(dir, "seg_*.so"))
	for _, f := range old {
		_ = os.Remove(f)
	}
	for i, b := range p.Segments {
		if err := os.WriteFile(filepath.Join(dir, segFile(i+1)), b, 0o644); err != nil {
			return "", err
		}
	}
	if p.View != nil {
		if err := os.WriteFile(filepath.Join(dir, viewFile), p.View, 0o644); err != nil {
			return "", err
		}
	}
	if p.Legacy != nil {
		if err := os.WriteFile(filepath.Join(dir, legacyFile), p.Legacy, 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}
