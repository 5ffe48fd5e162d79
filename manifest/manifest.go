// Package manifest handles kestrel.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/deepnoodle-ai/kestrel/compiler"
)

// FileName is the name of the project file.
const FileName = "kestrel.toml"

// Manifest represents a kestrel.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Source   Source         `toml:"source"`
	Compiler CompilerConfig `toml:"compiler"`
	Output   OutputConfig   `toml:"output"`

	// Dir is the directory containing the kestrel.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source lists the files of the project. They are compiled in order, so a
// file may refer to definitions made by the files before it.
type Source struct {
	Files []string `toml:"files"`
}

// CompilerConfig holds compiler settings.
type CompilerConfig struct {
	Globals     []string `toml:"globals"`
	LateBinding bool     `toml:"late-binding"`
	MaxDepth    int      `toml:"max-depth"`
}

// OutputConfig configures compiled output.
type OutputConfig struct {
	Path  string `toml:"path"`
	Cache bool   `toml:"cache"`
}

// Parse decodes a manifest from TOML text. Unknown keys are an error.
func Parse(data string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Source.Files) == 0 {
		return fmt.Errorf("source.files must list at least one file")
	}
	seen := map[string]bool{}
	for _, f := range m.Source.Files {
		clean := filepath.Clean(f)
		if seen[clean] {
			return fmt.Errorf("source file %q listed twice", f)
		}
		seen[clean] = true
	}
	if m.Compiler.MaxDepth < 0 {
		return fmt.Errorf("compiler.max-depth must not be negative")
	}
	return nil
}

// Load parses the kestrel.toml file in the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if m.Output.Path == "" {
		name := m.Project.Name
		if name == "" {
			name = filepath.Base(m.Dir)
		}
		m.Output.Path = name + ".kbc"
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a kestrel.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// SourcePaths returns the source files as paths relative to the working
// directory of the caller, in compilation order.
func (m *Manifest) SourcePaths() []string {
	paths := make([]string, len(m.Source.Files))
	for i, f := range m.Source.Files {
		if filepath.IsAbs(f) {
			paths[i] = f
		} else {
			paths[i] = filepath.Join(m.Dir, f)
		}
	}
	return paths
}

// OutputPath returns the absolute path of the compiled output.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Output.Path) {
		return m.Output.Path
	}
	return filepath.Join(m.Dir, m.Output.Path)
}

// CompilerOptions returns the compiler options the manifest selects.
func (m *Manifest) CompilerOptions() []compiler.Option {
	var opts []compiler.Option
	if len(m.Compiler.Globals) > 0 {
		opts = append(opts, compiler.WithGlobalNames(m.Compiler.Globals...))
	}
	if m.Compiler.LateBinding {
		opts = append(opts, compiler.WithLateBinding(true))
	}
	return opts
}

// Settings returns the compiler settings as strings, for use in cache keys.
func (m *Manifest) Settings() map[string]string {
	return map[string]string{
		"globals":      strings.Join(m.Compiler.Globals, ","),
		"late-binding": strconv.FormatBool(m.Compiler.LateBinding),
	}
}
