package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePathValidator validates the local paths reel writes to: the database
// file, the watchlist search index and the log file.
type FilePathValidator struct {
	// AllowedBaseDirs restricts writes to these directories; empty allows all
	AllowedBaseDirs []string
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

// NewFilePathValidator restricts paths to reel's own directories and the temp dir.
func NewFilePathValidator() *FilePathValidator {
	homeDir, _ := os.UserHomeDir()
	return &FilePathValidator{
		AllowedBaseDirs: []string{
			filepath.Join(homeDir, ".reel"),
			filepath.Join(homeDir, ".config", "reel"),
			homeDir,
			os.TempDir(),
		},
		MaxPathLength: 4096,
	}
}

// NewPermissiveFilePathValidator allows any directory.
func NewPermissiveFilePathValidator() *FilePathValidator {
	return &FilePathValidator{MaxPathLength: 4096}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// ValidateAndSanitize expands, cleans and checks a path, returning it absolute.
func (v *FilePathValidator) ValidateAndSanitize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	if strings.Contains(path, "\x00") {
		return "", fmt.Errorf("path contains null bytes")
	}
	for _, char := range path {
		if char < 32 && char != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	path = ExpandHome(path)
	if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("invalid tilde usage")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}
	abs = filepath.Clean(abs)

	if err := v.validateBaseDirs(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (v *FilePathValidator) validateBaseDirs(absPath string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}
	for _, baseDir := range v.AllowedBaseDirs {
		absBaseDir, err := filepath.Abs(baseDir)
		if err != nil {
			continue
		}
		relPath, err := filepath.Rel(absBaseDir, absPath)
		if err != nil {
			continue
		}
		if relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}

// ValidateFile validates a file path and makes sure it is not a directory.
func (v *FilePathValidator) ValidateFile(path string) (string, error) {
	validated, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(validated); statErr == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", validated)
	}
	return validated, nil
}

// ValidateDirectory validates a directory path, optionally creating it.
func (v *FilePathValidator) ValidateDirectory(path string, create bool) (string, error) {
	validated, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(validated)
	switch {
	case os.IsNotExist(err):
		if create {
			if mkErr := os.MkdirAll(validated, 0o755); mkErr != nil {
				return "", fmt.Errorf("failed to create directory: %w", mkErr)
			}
		}
	case err != nil:
		return "", fmt.Errorf("checking directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", validated)
	}
	return validated, nil
}

// PathHandler resolves reel's well-known paths with validation.
type PathHandler struct {
	validator *FilePathValidator
}

// NewSecurePathHandler creates a path handler with secure validation
func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

// NewPermissivePathHandler creates a path handler for development/testing
func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewPermissiveFilePathValidator()}
}

// DBPath returns a validated database path, defaulting to ~/.reel/reel.db.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	if userPath == "" {
		userPath = "~/.reel/reel.db"
	}
	return ph.validator.ValidateFile(userPath)
}

// IndexPath returns a validated search index directory (not created).
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		userPath = "~/.reel/watchlist.bleve"
	}
	return ph.validator.ValidateDirectory(userPath, false)
}

// LogPath returns a validated log file path.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	if userPath == "" {
		userPath = "~/.reel/reel.log"
	}
	return ph.validator.ValidateFile(userPath)
}
