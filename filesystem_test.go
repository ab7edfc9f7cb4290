package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkDirectoryKeepsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "top.txt")
	writeLocalFile(t, root, "sub/inner.txt")
	if mkdirErr := os.MkdirAll(filepath.Join(root, "empty-dir"), 0755); mkdirErr != nil {
		t.Fatal(mkdirErr)
	}

	fileMap, walkErr := walkDirectory(root)

	assert.Nil(t, walkErr)
	assert.Len(t, fileMap, 2)
	assert.Contains(t, fileMap, "top.txt")
	assert.Contains(t, fileMap, "sub/inner.txt")
	assert.NotContains(t, fileMap, "empty-dir")
}

func TestWalkDirectorySkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	root := t.TempDir()
	writeLocalFile(t, root, "real.txt")
	if linkErr := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); linkErr != nil {
		t.Fatal(linkErr)
	}

	fileMap, walkErr := walkDirectory(root)

	assert.Nil(t, walkErr)
	assert.Len(t, fileMap, 1)
	assert.Contains(t, fileMap, "real.txt")
}

func TestRelativeKeyIsPosixSeparated(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "c.txt")

	key, keyErr := relativeKey(root, path)

	assert.Nil(t, keyErr)
	assert.Equal(t, "a/b/c.txt", key)
}

func TestLocalPathForKeyRoundTrips(t *testing.T) {
	root := t.TempDir()
	path := localPathForKey(root, "a/b/c.txt")

	key, keyErr := relativeKey(root, path)

	assert.Nil(t, keyErr)
	assert.Equal(t, "a/b/c.txt", key)
}
