// ABOUTME: Standard filesystem paths for overlay-go configuration
// ABOUTME: Resolves ~/.overlay-go/ for global and .overlay-go/ for project-local files

package config

import (
	"os"
	"path/filepath"
)

const (
	dirName  = ".overlay-go"
	fileName = "config.yaml"
)

// GlobalDir returns the user-global config directory (~/.overlay-go/).
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", dirName)
	}
	return filepath.Join(home, dirName)
}

// ProjectDir returns the project-local config directory.
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, dirName)
}

// GlobalConfigFile returns the path to the global config file.
func GlobalConfigFile() string {
	return filepath.Join(GlobalDir(), fileName)
}

// ProjectConfigFile returns the path to the project-local config file.
func ProjectConfigFile(projectRoot string) string {
	return filepath.Join(ProjectDir(projectRoot), fileName)
}

// Files lists every settings file Load consults, in merge order.
func Files(projectRoot, explicit string) []string {
	files := []string{GlobalConfigFile(), ProjectConfigFile(projectRoot)}
	if explicit != "" {
		files = append(files, explicit)
	}
	return files
}
