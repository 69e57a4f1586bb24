package level

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/elementalcave/cave-server-go/internal/board"
)

//go:embed levels/*.json
var embeddedLevels embed.FS

// ErrUnknownLevel is returned when a catalog has no level with the given id.
var ErrUnknownLevel = errors.New("unknown level")

// Level is a parsed and built level.
type Level struct {
	File  *File
	Setup board.Setup
}

// Catalog indexes levels by id in file-name order.
type Catalog struct {
	order  []string
	levels map[string]*Level
}

// Default returns the catalog of levels shipped with the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embeddedLevels, "levels")
	if err != nil {
		return nil, fmt.Errorf("level: open embedded levels: %w", err)
	}
	return Load(sub)
}

// LoadDir reads every *.json level in dir.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load reads every *.json level at the root of fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("level: read directory: %w", err)
	}

	c := &Catalog{levels: make(map[string]*Level)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Clean(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("level: read %q: %w", entry.Name(), err)
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("level: %s: %w", entry.Name(), err)
		}
		if _, dup := c.levels[f.ID]; dup {
			return nil, fmt.Errorf("level: %s: duplicate level id %q", entry.Name(), f.ID)
		}
		setup, err := f.Build()
		if err != nil {
			return nil, fmt.Errorf("level: %s: %w", entry.Name(), err)
		}
		c.levels[f.ID] = &Level{File: f, Setup: setup}
		c.order = append(c.order, f.ID)
	}
	return c, nil
}

// IDs returns the level ids in play order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of levels.
func (c *Catalog) Len() int { return len(c.order) }

// Level looks a level up by id. The returned setup may be handed to
// board.New any number of times.
func (c *Catalog) Level(id string) (*Level, error) {
	l, ok := c.levels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, id)
	}
	return l, nil
}

// Next returns the level that follows id in play order.
func (c *Catalog) Next(id string) (string, bool) {
	for i, o := range c.order {
		if o == id && i+1 < len(c.order) {
			return c.order[i+1], true
		}
	}
	return "", false
}
