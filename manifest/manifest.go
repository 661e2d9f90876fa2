// Package manifest handles typecore.toml project configuration and the
// TOML class-description files it points at.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/typecore/vm"
)

// FileName is the name of the project configuration file.
const FileName = "typecore.toml"

// Manifest represents a typecore.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Log     LogConfig     `toml:"log"`
	Runtime RuntimeConfig `toml:"runtime"`
	Classes Classes       `toml:"classes"`

	// Dir is the directory containing the typecore.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name      string `toml:"name"`
	Namespace string `toml:"namespace"`
	Version   string `toml:"version"`
}

// LogConfig configures the log backend.
type LogConfig struct {
	// Verbosity is the commonlog verbosity: 0 logs errors and warnings,
	// each step adds a level. Negative values disable logging.
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// RuntimeConfig tunes the class runtime. Unset values keep the runtime
// defaults.
type RuntimeConfig struct {
	OperatorCache      *bool `toml:"operator-cache"`
	DeepCopyDepthLimit int   `toml:"deepcopy-depth-limit"`
}

// Classes configures class-description sources.
type Classes struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

// Load parses a typecore.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Classes.Dirs) == 0 && len(m.Classes.Files) == 0 {
		m.Classes.Dirs = []string{"classes"}
	}
	if m.Project.Namespace == "" && m.Project.Name != "" {
		m.Project.Namespace = ToPascalCase(m.Project.Name)
	}
	if IsReservedNamespace(m.Project.Namespace) {
		return nil, fmt.Errorf("%s: namespace %q is reserved for a builtin type", path, m.Project.Namespace)
	}
	if m.Runtime.DeepCopyDepthLimit < 0 {
		return nil, fmt.Errorf("%s: deepcopy-depth-limit must not be negative", path)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a typecore.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// RuntimeOptions converts the [runtime] section to vm options.
func (m *Manifest) RuntimeOptions() vm.Options {
	o := vm.DefaultOptions()
	if m.Runtime.OperatorCache != nil {
		o.OperatorCache = *m.Runtime.OperatorCache
	}
	if m.Runtime.DeepCopyDepthLimit > 0 {
		o.DeepCopyDepthLimit = m.Runtime.DeepCopyDepthLimit
	}
	return o
}

// LogPath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	if m.Log.File == "" {
		return ""
	}
	if filepath.IsAbs(m.Log.File) {
		return m.Log.File
	}
	return filepath.Join(m.Dir, m.Log.File)
}

// ClassFilePaths returns the absolute paths of every class-description
// file: the *.toml and *.cbor files in each configured directory
// followed by the explicitly listed files. Missing directories are
// skipped.
func (m *Manifest) ClassFilePaths() ([]string, error) {
	var paths []string
	for _, d := range m.Classes.Dirs {
		dir := filepath.Join(m.Dir, d)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot list %s: %w", dir, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".toml", ".cbor":
				found = append(found, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	for _, f := range m.Classes.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(m.Dir, f)
		}
		paths = append(paths, f)
	}
	return paths, nil
}
