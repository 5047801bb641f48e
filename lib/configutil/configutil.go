package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Validator is implemented by config structs that need to reject
// incomplete configuration after all overlays are merged.
type Validator interface {
	Validate() error
}

func localOverlayPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readJson5[T any](path string, out *T) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file, `name` should come with a file extension.
// <name>.local.<ext> is merged on top of <name>.<ext> when it exists, fields set in the
// local file win.
func ReadConfig[T any](name string) (T, error) {
	var out T

	foundDefault, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	localPath := localOverlayPath(name)
	var override T
	foundLocal, err := readJson5(localPath, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}

	if v, ok := any(&out).(Validator); ok {
		err = v.Validate()
		if err != nil {
			return out, fmt.Errorf("invalid config %s: %w", name, err)
		}
	}

	return out, nil
}

// ReadRecursively is ReadConfig but it walks up from the working directory
// until it finds a directory containing the configuration file.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	root, err := filepath.Abs("/")
	if err != nil {
		return defaultOut, err
	}
	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for current != root {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			current = filepath.Dir(current)
			continue
		}
		if err != nil {
			return defaultOut, err
		}
		return config, nil
	}

	return defaultOut, os.ErrNotExist
}
