package main

import (
	"os"
	"path/filepath"
)

// TODO: is there some better way to allow for stubbing filesystem interactions for tests?
var concreteWalkFunc = walkDirectory

type walkFunc func(string) (map[string]os.FileInfo, error)

// walkDirectory enumerates all regular files under root, keyed by their
// forward-slash relative path. That key doubles as the bucket key.
func walkDirectory(root string) (map[string]os.FileInfo, error) {
	fileMap := make(map[string]os.FileInfo)
	walkErr := filepath.Walk(root, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !f.Mode().IsRegular() {
			return nil
		}
		key, keyErr := relativeKey(root, path)
		if keyErr != nil {
			return keyErr
		}
		fileMap[key] = f
		return nil
	})

	return fileMap, walkErr
}

// relativeKey turns an absolute path under root into a POSIX-separated
// key with no root prefix, matching how the bucket names objects.
func relativeKey(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// localPathForKey is the inverse of relativeKey on the host's separator.
func localPathForKey(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(key))
}

func isRegularFile(path string) bool {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return false
	}
	return info.IsDir()
}
