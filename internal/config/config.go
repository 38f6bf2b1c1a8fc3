// Package config loads mdxprep settings: which vendored libraries to
// process, what to prune from them, which filter tables to generate, which
// patch groups to install, and the preview renderer's rates.
//
// Settings come from Default() and may be overridden by a YAML file. The
// file is validated against an embedded CUE schema before it is decoded.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mdxprep/internal/patches"
	"github.com/roach88/mdxprep/internal/prune"
	"github.com/roach88/mdxprep/internal/sinctable"
	"github.com/roach88/mdxprep/internal/textpatch"
)

// FileName is the config file looked up at the project root.
const FileName = "mdxprep.yaml"

// Config is the complete settings tree.
type Config struct {
	// Libraries lists the library directory names processed under each
	// .pio/libdeps/<env>/.
	Libraries []string `yaml:"libraries" json:"libraries"`

	// TableLibrary is the library whose root receives the sinc tables.
	TableLibrary string `yaml:"table_library" json:"table_library"`

	// Prune maps a library name to what is removed from it.
	Prune map[string]prune.Rule `yaml:"prune" json:"prune"`

	// Tables lists the filter tables to generate.
	Tables []sinctable.Spec `yaml:"tables" json:"tables"`

	// Patches maps a library name to the enabled patch groups. A library
	// without an entry gets every group.
	Patches map[string][]string `yaml:"patches" json:"patches"`

	Render Render `yaml:"render" json:"render"`

	// History is an optional SQLite database path for the run log.
	History string `yaml:"history" json:"history"`
}

// Render configures the preview renderer.
type Render struct {
	NativeRate int `yaml:"native_rate" json:"native_rate"`
	OutputRate int `yaml:"output_rate" json:"output_rate"`
	BlockSize  int `yaml:"block_size" json:"block_size"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Libraries:    []string{patches.LibMDXTools, patches.LibPortableMDX},
		TableLibrary: patches.LibMDXTools,
		Prune: map[string]prune.Rule{
			patches.LibMDXTools: {
				Files: []string{
					"mdx2wav.c", "mdx2vgm.c", "mdx2midi.c", "mdxdump.c",
					"pdx2wav.c", "pdxinfo.c", "Makefile",
				},
				Globs:   []string{"*.o", "*_test.c"},
				Dirs:    []string{"tests", "docs", ".github"},
				Renames: map[string]string{"stream.h": patches.StreamHeader},
			},
			patches.LibPortableMDX: {
				Globs: []string{"*.sln", "*.vcxproj"},
				Dirs:  []string{"examples", "tools"},
			},
		},
		Tables: []sinctable.Spec{
			{Name: "sinctbl3.h", Params: sinctable.Params{Denominator: 3}.WithDefaults()},
			{Name: "sinctbl4.h", Params: sinctable.Params{Denominator: 4}.WithDefaults()},
		},
		Render: Render{
			NativeRate: 15625,
			OutputRate: 44100,
			BlockSize:  512,
		},
	}
}

// Load reads path over Default(). An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadProject loads <projectDir>/mdxprep.yaml when it exists, otherwise
// returns Default().
func LoadProject(projectDir string) (*Config, error) {
	path := filepath.Join(projectDir, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes YAML over Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	for i := range c.Tables {
		c.Tables[i].Params = c.Tables[i].Params.WithDefaults()
	}
	return c.Validate()
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	if len(c.Libraries) == 0 {
		return &ValidationError{Field: "libraries", Message: "at least one library is required"}
	}
	known := make(map[string]bool, len(c.Libraries))
	for _, lib := range c.Libraries {
		if lib == "" || lib != filepath.Base(lib) {
			return &ValidationError{Field: "libraries", Message: fmt.Sprintf("invalid library name %q", lib)}
		}
		known[lib] = true
	}
	if len(c.Tables) > 0 && !known[c.TableLibrary] {
		return &ValidationError{Field: "table_library", Message: fmt.Sprintf("%q is not a configured library", c.TableLibrary)}
	}

	names := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if names[t.Name] {
			return &ValidationError{Field: "tables", Message: fmt.Sprintf("duplicate table %q", t.Name)}
		}
		names[t.Name] = true
	}

	for lib, groups := range c.Patches {
		if len(groups) == 0 {
			continue
		}
		if _, err := patches.Sets(lib, toGroups(groups)...); err != nil {
			return &ValidationError{Field: "patches." + lib, Message: err.Error()}
		}
	}

	if c.Render.NativeRate <= 0 || c.Render.OutputRate <= 0 || c.Render.BlockSize <= 0 {
		return &ValidationError{Field: "render", Message: "rates and block size must be positive"}
	}
	return nil
}

// PatchesFor returns the patch sets to install into library. A library with
// an explicit empty group list gets none; a library the catalogue does not
// know gets none unless groups were requested for it.
func (c *Config) PatchesFor(library string) ([]textpatch.Set, error) {
	groups, ok := c.Patches[library]
	if ok && len(groups) == 0 {
		return nil, nil
	}
	if !ok && !slices.Contains(patches.Libraries(), library) {
		return nil, nil
	}
	return patches.Sets(library, toGroups(groups)...)
}

func toGroups(names []string) []patches.Group {
	out := make([]patches.Group, 0, len(names))
	for _, n := range names {
		out = append(out, patches.Group(n))
	}
	return out
}
