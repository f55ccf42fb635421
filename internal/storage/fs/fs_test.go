package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/clinic-content/internal/storage"
	"github.com/tendant/clinic-content/internal/storage/fs"
)

func TestFSBackend(t *testing.T) {
	tempDir := t.TempDir()

	backend, err := fs.New(fs.Config{BaseDir: tempDir})
	require.NoError(t, err)

	ctx := context.Background()
	objectKey := "clinic_blog/abc.jpg"
	content := "Hello, World!"

	err = backend.Upload(ctx, objectKey, strings.NewReader(content), "image/jpeg")
	assert.NoError(t, err)

	filePath := filepath.Join(tempDir, objectKey)
	_, err = os.Stat(filePath)
	assert.NoError(t, err)

	reader, err := backend.Download(ctx, objectKey)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	assert.NoError(t, err)
	assert.Equal(t, content, string(data))

	err = backend.Delete(ctx, objectKey)
	assert.NoError(t, err)

	_, err = os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))

	// empty folder is cleaned up, base dir is kept
	_, err = os.Stat(filepath.Join(tempDir, "clinic_blog"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tempDir)
	assert.NoError(t, err)
}

func TestFSBackend_NotFound(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Download(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	err = backend.Delete(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestFSBackend_RejectsTraversal(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	err = backend.Upload(context.Background(), "../escape.jpg", strings.NewReader("x"), "image/jpeg")
	assert.Error(t, err)

	_, err = backend.Download(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestNew_RequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}
