package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the absolute path to the project root directory.
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "." // fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root
		}
		dir = parent
	}
	return "." // fallback
}

// FindConfigFile returns the path to config.json: the working directory copy
// if one exists, otherwise the copy next to go.mod.
func FindConfigFile() string {
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}
	return filepath.Join(GetProjectRoot(), "config.json")
}
