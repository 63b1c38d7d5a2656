package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hanpama/shapeql/internal/shape"
)

// FileSystem is a Catalog backed by a directory of YAML declarations, one
// type per file named after the type. Files are decoded on first lookup.
type FileSystem struct {
	paths map[string]string

	mu    sync.Mutex
	specs map[string]*shape.Spec
}

// NewFileSystem indexes every .yaml/.yml file under rootDir.
func NewFileSystem(rootDir string) (*FileSystem, error) {
	fsc := &FileSystem{
		paths: make(map[string]string),
		specs: make(map[string]*shape.Spec),
	}
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		typeName := strings.TrimSuffix(d.Name(), ext)
		if prev, ok := fsc.paths[typeName]; ok {
			return fmt.Errorf("type %q declared twice: %s and %s", typeName, prev, path)
		}
		fsc.paths[typeName] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk catalog directory %q: %w", rootDir, err)
	}
	return fsc, nil
}

// Lookup implements Catalog interface
func (c *FileSystem) Lookup(ctx context.Context, typeName string) (*shape.Spec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.specs[typeName]; ok {
		return s, nil
	}
	path, ok := c.paths[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotFound, typeName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration for %q: %w", typeName, err)
	}
	s, err := Decode(typeName, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.specs[typeName] = s
	return s, nil
}

// List implements Catalog interface
func (c *FileSystem) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(c.paths))
	for name := range c.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
