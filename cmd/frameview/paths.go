package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandTilde expands a leading ~ to the user's home directory
func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// resolveFramesDir expands ~ and makes dir absolute
func resolveFramesDir(dir string) (string, error) {
	expanded, err := expandTilde(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", dir, err)
	}
	return abs, nil
}

// getMetadataDir returns $HOME/.frameview, where generated certificates live
func getMetadataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".frameview"), nil
}
