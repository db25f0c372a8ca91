package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// FileSource reads scene documents from a content directory. The scene
// "ns/name" lives at <root>/ns/name.json, .yaml or .yml.
type FileSource struct {
	root string
}

var _ Source = (*FileSource)(nil)

func NewFileSource(root string) *FileSource {
	if root == "" {
		root = "./content"
	}
	return &FileSource{root: root}
}

// ValidID reports whether id can name a scene file: it needs a namespace
// and may not climb out of the content root.
func ValidID(id string) bool {
	return id != "" && strings.Contains(id, "/") && !strings.Contains(id, "..") &&
		!strings.HasPrefix(id, "/") && !strings.HasSuffix(id, "/")
}

func (f *FileSource) Fetch(ctx context.Context, id string) (scene.Scene, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	for _, ext := range scene.Extensions {
		path := filepath.Join(f.root, filepath.FromSlash(id)+ext)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat scene file: %w", err)
		}
		if info.IsDir() {
			continue
		}
		return scene.ParseFile(path)
	}
	return nil, ErrNotFound
}

// IDs lists every scene file under the root as a scene ID.
func (f *FileSource) IDs() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if !isSceneExt(ext) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, ext)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content directory: %w", err)
	}
	return ids, nil
}

func isSceneExt(ext string) bool {
	for _, e := range scene.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
