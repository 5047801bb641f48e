package devenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var modName = regexp.MustCompile(`(?m)^module *([\w\-_]+)$`)

func isWorkspaceRoot(currentdir string) bool {
	mod, err := os.ReadFile(filepath.Join(currentdir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == "vamkhelp-backend"
}

func GetWorkspaceRoot() (string, error) {
	currentdir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs("/")
	if err != nil {
		return "", err
	}

	for currentdir != root {
		if isWorkspaceRoot(currentdir) {
			return currentdir, nil
		}
		currentdir = filepath.Join(currentdir, "..")
	}

	return "", os.ErrNotExist
}

// ResolvePath expands a leading "<dev_state>" into <workspace root>/dev/.state,
// any other path is returned untouched.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "<dev_state>") {
		return path, nil
	}

	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Join(root, "dev", ".state"), 0777)
	if err != nil {
		return "", err
	}

	subpath := filepath.Join(strings.Split(path, string(os.PathSeparator))[1:]...)
	return filepath.Join(root, "dev", ".state", subpath), nil
}
