package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the autoballoon home directory.
	DefaultDirName = ".autoballoon"

	// DrawingsDirName is the subdirectory for ingested drawing data.
	DrawingsDirName = "drawings"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the autoballoon home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.autoballoon).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DrawingsPath returns the path to the drawings directory.
func (d *Dir) DrawingsPath() string {
	return filepath.Join(d.path, DrawingsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.DrawingsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create drawings directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// DrawingDir returns the directory holding one drawing's rendered pages.
func (d *Dir) DrawingDir(drawingID string) string {
	return filepath.Join(d.DrawingsPath(), drawingID)
}

// PageImagePath returns the path to a rendered page image.
// Page numbers are 1-indexed.
func (d *Dir) PageImagePath(drawingID string, pageNum int) string {
	return filepath.Join(d.DrawingDir(drawingID), fmt.Sprintf("page_%04d.png", pageNum))
}

// OriginalPath returns the path where the uploaded source file is staged.
func (d *Dir) OriginalPath(drawingID, name string) string {
	return filepath.Join(d.DrawingDir(drawingID), "original", name)
}

// EnsureDrawingDir creates the page directory for a drawing.
func (d *Dir) EnsureDrawingDir(drawingID string) error {
	return os.MkdirAll(d.DrawingDir(drawingID), 0o755)
}

// EnsureOriginalDir creates the originals directory for a drawing.
func (d *Dir) EnsureOriginalDir(drawingID string) error {
	return os.MkdirAll(filepath.Join(d.DrawingDir(drawingID), "original"), 0o755)
}
