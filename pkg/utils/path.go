package utils

import (
	"os"
	"path/filepath"

	"github.com/PhiFever/vision-bridge/pkg/version"
)

// GetDataPath returns the path to a file under the project's data directory.
// It walks up from the working directory so tests and binaries started from
// sub-directories find the same files.
func GetDataPath(path string) string {
	dataPath := filepath.Join("data", path)
	if _, err := os.Stat(dataPath); err == nil {
		return dataPath
	}

	cwd, err := os.Getwd()
	if err != nil {
		return dataPath
	}

	dir := cwd
	for i := 0; i < 10; i++ { // Limit depth to prevent infinite loop
		if _, err := os.Stat(filepath.Join(dir, "data")); err == nil {
			return filepath.Join(dir, "data", path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return dataPath
}

// GetAppDataPath returns the path to an application data file, creating the
// application data directory if needed.
func GetAppDataPath(filename string) (string, error) {
	var appDataDir string

	if appData := os.Getenv("APPDATA"); appData != "" {
		// Windows
		appDataDir = filepath.Join(appData, version.AppName)
	} else if home := os.Getenv("HOME"); home != "" {
		// Linux/macOS
		appDataDir = filepath.Join(home, ".local", "share", version.AppName)
	} else {
		appDataDir = filepath.Join(os.TempDir(), version.AppName)
	}

	if err := os.MkdirAll(appDataDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(appDataDir, filename), nil
}
