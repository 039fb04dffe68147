package localcache

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFS struct {
	OSFileSystem
	writes atomic.Int32
}

func (c *countingFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	c.writes.Add(1)
	return c.OSFileSystem.WriteFile(name, data, perm)
}

func TestSaveIfAbsentWritesOnce(t *testing.T) {
	fsys := &countingFS{}
	cache := NewWithFileSystem(t.TempDir(), fsys)

	wrote, err := cache.SaveIfAbsent(KindImage, "a_0.jpg", []byte("first"))
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = cache.SaveIfAbsent(KindImage, "a_0.jpg", []byte("first"))
	require.NoError(t, err)
	assert.False(t, wrote)

	assert.Equal(t, int32(1), fsys.writes.Load())

	p, err := cache.Path(KindImage, "a_0.jpg")
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestSaveIfAbsentKeepsExistingContent(t *testing.T) {
	cache := New(t.TempDir())

	_, err := cache.SaveIfAbsent(KindVideo, "v.mp4", []byte("original"))
	require.NoError(t, err)
	_, err = cache.SaveIfAbsent(KindVideo, "v.mp4", []byte("replacement"))
	require.NoError(t, err)

	p, _ := cache.Path(KindVideo, "v.mp4")
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestPathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	cache := New(root)

	p, err := cache.Path(KindDocument, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Enclosure", "Media", "Documents", "passwd"), p)

	_, err = cache.Path(KindDocument, "")
	assert.ErrorIs(t, err, ErrInvalidFileName)
}

func TestLayoutAndTotalSize(t *testing.T) {
	root := t.TempDir()
	cache := New(root)

	_, err := cache.SaveIfAbsent(KindImage, "x.jpg", []byte("1234"))
	require.NoError(t, err)
	_, err = cache.SaveIfAbsent(KindThumbnail, "thumb_x.jpg", []byte("12"))
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, "Enclosure", "Media", "Images"))
	assert.True(t, cache.Exists(KindThumbnail, "thumb_x.jpg"))
	assert.False(t, cache.Exists(KindVideo, "thumb_x.jpg"))

	total, err := cache.TotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestCleanupRemovesOldFiles(t *testing.T) {
	cache := New(t.TempDir())

	_, err := cache.SaveIfAbsent(KindImage, "old.jpg", []byte("o"))
	require.NoError(t, err)
	_, err = cache.SaveIfAbsent(KindImage, "new.jpg", []byte("n"))
	require.NoError(t, err)

	oldPath, _ := cache.Path(KindImage, "old.jpg")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	removed, err := cache.Cleanup(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, cache.Exists(KindImage, "old.jpg"))
	assert.True(t, cache.Exists(KindImage, "new.jpg"))
}
