package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LibDepsDir is where installed libraries live, relative to the project.
const LibDepsDir = ".pio/libdeps"

// Instance is one installed copy of a library.
type Instance struct {
	Env     string
	Library string
	Root    string
}

// Locate lists the installed copies of libraries in projectDir. Envs are
// visited in directory order and libraries in the order given.
func Locate(projectDir string, libraries []string) ([]Instance, error) {
	base := filepath.Join(projectDir, filepath.FromSlash(LibDepsDir))
	envs, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", base, ErrNoLibDeps)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", base, err)
	}

	var out []Instance
	for _, env := range envs {
		if !env.IsDir() {
			continue
		}
		for _, lib := range libraries {
			root := filepath.Join(base, env.Name(), lib)
			info, err := os.Stat(root)
			if err != nil || !info.IsDir() {
				continue
			}
			out = append(out, Instance{Env: env.Name(), Library: lib, Root: root})
		}
	}
	return out, nil
}
