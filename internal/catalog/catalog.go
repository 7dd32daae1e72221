// Package catalog persists crawled restaurants on the filesystem: one JSON
// file per restaurant, a resumable id index per platform, and a cache of the
// raw platform payloads the restaurants were built from.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edgard/what2eat/internal/menu"
)

// ErrNotFound is returned when a restaurant, index or raw payload does not
// exist.
var ErrNotFound = errors.New("not found")

const (
	restaurantsDir = "restaurants"
	indexDir       = "index"
	rawDir         = "raw"
	fileExt        = ".json"
)

// Catalog is rooted at a data directory:
//
//	<root>/restaurants/<id>.json
//	<root>/index/<platform>.json
//	<root>/raw/<platform>/<id>.json
type Catalog struct {
	root string
}

// New returns a catalog rooted at dir, creating the layout when missing.
func New(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, errors.New("catalog directory cannot be empty")
	}
	for _, sub := range []string{restaurantsDir, indexDir, rawDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory %s: %w", sub, err)
		}
	}
	return &Catalog{root: dir}, nil
}

// Root returns the data directory.
func (c *Catalog) Root() string {
	return c.root
}

func (c *Catalog) restaurantPath(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(c.root, restaurantsDir, id+fileExt), nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid restaurant id %q", id)
	}
	return nil
}

// Exists reports whether a restaurant file is present for id.
func (c *Catalog) Exists(id string) bool {
	path, err := c.restaurantPath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// IDs lists the ids of every persisted restaurant, sorted.
func (c *Catalog) IDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.root, restaurantsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads the restaurant stored under id.
func (c *Catalog) Load(id string) (*menu.Restaurant, error) {
	path, err := c.restaurantPath(id)
	if err != nil {
		return nil, err
	}
	var r menu.Restaurant
	if err := readJSON(path, &r); err != nil {
		return nil, fmt.Errorf("failed to load restaurant %s: %w", id, err)
	}
	return &r, nil
}

// Save writes r under its id, replacing any previous file.
func (c *Catalog) Save(r menu.Restaurant) error {
	path, err := c.restaurantPath(r.ID)
	if err != nil {
		return err
	}
	if err := writeJSON(path, r); err != nil {
		return fmt.Errorf("failed to save restaurant %s: %w", r.ID, err)
	}
	return nil
}

// Remove deletes the restaurant file for id. It reports whether a file was
// actually removed.
func (c *Catalog) Remove(id string) (bool, error) {
	path, err := c.restaurantPath(id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove restaurant %s: %w", id, err)
	}
	return true, nil
}

// LoadIndex returns the persisted id list of a platform, or ErrNotFound.
func (c *Catalog) LoadIndex(p menu.Platform) ([]string, error) {
	var ids []string
	if err := readJSON(filepath.Join(c.root, indexDir, string(p)+fileExt), &ids); err != nil {
		return nil, fmt.Errorf("failed to load %s index: %w", p, err)
	}
	return ids, nil
}

// SaveIndex persists the id list of a platform.
func (c *Catalog) SaveIndex(p menu.Platform, ids []string) error {
	if err := writeJSON(filepath.Join(c.root, indexDir, string(p)+fileExt), ids); err != nil {
		return fmt.Errorf("failed to save %s index: %w", p, err)
	}
	return nil
}

func (c *Catalog) rawPath(p menu.Platform, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(c.root, rawDir, string(p), id+fileExt), nil
}

// LoadRaw returns the cached raw payload of a restaurant, or ErrNotFound.
func (c *Catalog) LoadRaw(p menu.Platform, id string) ([]byte, error) {
	path, err := c.rawPath(p, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read raw payload %s: %w", id, err)
	}
	return data, nil
}

// SaveRaw caches a raw payload.
func (c *Catalog) SaveRaw(p menu.Platform, id string, data []byte) error {
	path, err := c.rawPath(p, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create raw directory: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write raw payload %s: %w", id, err)
	}
	return nil
}

// RawIDs lists the ids that have a cached raw payload for p, sorted.
func (c *Catalog) RawIDs(p menu.Platform) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.root, rawDir, string(p)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list raw payloads: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes through a temp file so a reader never sees a
// half-written restaurant.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
