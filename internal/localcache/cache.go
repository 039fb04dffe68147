// Package localcache keeps the app-private copy of sent and received media
// under {root}/Enclosure/Media/{Images,Videos,Documents,Thumbnail}.
package localcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"EnclosureAPI/internal/helper"
)

type Kind string

const (
	KindImage     Kind = "Images"
	KindVideo     Kind = "Videos"
	KindDocument  Kind = "Documents"
	KindThumbnail Kind = "Thumbnail"
)

var AllKinds = []Kind{KindImage, KindVideo, KindDocument, KindThumbnail}

var ErrInvalidFileName = errors.New("invalid file name")

// KindFromString maps request values (image, video, document, thumbnail).
func KindFromString(s string) Kind {
	switch s {
	case "video":
		return KindVideo
	case "document":
		return KindDocument
	case "thumbnail":
		return KindThumbnail
	default:
		return KindImage
	}
}

type FileInfo struct {
	Kind    Kind      `json:"kind"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type Cache struct {
	root string
	fs   FileSystem
}

func New(root string) *Cache {
	return NewWithFileSystem(root, OSFileSystem{})
}

func NewWithFileSystem(root string, fsys FileSystem) *Cache {
	return &Cache{
		root: filepath.Join(root, "Enclosure", "Media"),
		fs:   fsys,
	}
}

func (c *Cache) Dir(kind Kind) string {
	return filepath.Join(c.root, string(kind))
}

func (c *Cache) Path(kind Kind, fileName string) (string, error) {
	name := helper.SafeFileName(fileName)
	if name == "" {
		return "", ErrInvalidFileName
	}
	return filepath.Join(c.Dir(kind), name), nil
}

func (c *Cache) Exists(kind Kind, fileName string) bool {
	p, err := c.Path(kind, fileName)
	if err != nil {
		return false
	}
	_, err = c.fs.Stat(p)
	return err == nil
}

// SaveIfAbsent writes data unless a file with that name already exists.
// It reports whether a write happened.
func (c *Cache) SaveIfAbsent(kind Kind, fileName string, data []byte) (bool, error) {
	p, err := c.Path(kind, fileName)
	if err != nil {
		return false, err
	}

	if _, err := c.fs.Stat(p); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := c.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, fmt.Errorf("create cache dir: %w", err)
	}

	tmp := p + ".part"
	if err := c.fs.WriteFile(tmp, data, 0o644); err != nil {
		return false, fmt.Errorf("write cache file: %w", err)
	}
	if err := c.fs.Rename(tmp, p); err != nil {
		_ = c.fs.Remove(tmp)
		return false, fmt.Errorf("commit cache file: %w", err)
	}

	return true, nil
}

func (c *Cache) List(kind Kind) ([]FileInfo, error) {
	entries, err := c.fs.ReadDir(c.Dir(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Kind: kind, Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (c *Cache) TotalSize() (int64, error) {
	var total int64
	for _, kind := range AllKinds {
		files, err := c.List(kind)
		if err != nil {
			return 0, err
		}
		for _, f := range files {
			total += f.Size
		}
	}
	return total, nil
}

// Cleanup removes cached files last modified before cutoff and returns how
// many were deleted.
func (c *Cache) Cleanup(cutoff time.Time) (int, error) {
	removed := 0
	for _, kind := range AllKinds {
		files, err := c.List(kind)
		if err != nil {
			return removed, err
		}
		for _, f := range files {
			if !f.ModTime.Before(cutoff) {
				continue
			}
			if err := c.fs.Remove(filepath.Join(c.Dir(kind), f.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Failed to remove cached file", "kind", kind, "name", f.Name, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// FileSystem is the subset of os used by the cache.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
	ReadDir(name string) ([]fs.DirEntry, error)
}

type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}
