package patches

import (
	"fmt"
	"sort"

	"github.com/roach88/mdxprep/internal/textpatch"
)

// Library directory names under .pio/libdeps/<env>/.
const (
	LibMDXTools    = "mdxtools"
	LibPortableMDX = "portable_mdx"
)

// Group names a set of related patches that can be enabled or disabled
// together from configuration.
type Group string

const (
	GroupStreamInclude Group = "stream-include"
	GroupMixFastPath   Group = "mix-fast-path"
	GroupBank          Group = "bank"
	GroupKeyOn         Group = "keyon-staccato"
	GroupPSRAM         Group = "psram"
)

type entry struct {
	group   Group
	patches func() []textpatch.Patch

	// perFile marks groups whose patches are independent of each other;
	// each becomes its own set. Every other group is installed whole.
	perFile bool
}

var catalogue = map[string][]entry{
	LibMDXTools: {
		{group: GroupStreamInclude, patches: streamIncludePatches, perFile: true},
		{group: GroupMixFastPath, patches: mixPatches},
		{group: GroupBank, patches: bankPatches},
		{group: GroupKeyOn, patches: keyOnPatches},
	},
	LibPortableMDX: {
		{group: GroupPSRAM, patches: psramPatches},
	},
}

// Libraries returns the library names the catalogue knows, sorted.
func Libraries() []string {
	libs := make([]string, 0, len(catalogue))
	for lib := range catalogue {
		libs = append(libs, lib)
	}
	sort.Strings(libs)
	return libs
}

// Groups returns the patch groups defined for library in application order.
func Groups(library string) []Group {
	var groups []Group
	for _, e := range catalogue[library] {
		groups = append(groups, e.group)
	}
	return groups
}

// Sets returns the patch sets for library in application order. An empty
// enabled list selects every group; otherwise only the named groups are
// returned. Patches that depend on each other across files, such as a
// struct field in a header and the code using it, share a set.
func Sets(library string, enabled ...Group) ([]textpatch.Set, error) {
	entries, ok := catalogue[library]
	if !ok {
		return nil, fmt.Errorf("unknown library %q", library)
	}
	want := make(map[Group]bool, len(enabled))
	for _, g := range enabled {
		want[g] = true
	}
	for g := range want {
		if !hasGroup(entries, g) {
			return nil, fmt.Errorf("library %q has no patch group %q", library, g)
		}
	}

	var out []textpatch.Set
	for _, e := range entries {
		if len(want) > 0 && !want[e.group] {
			continue
		}
		patches := e.patches()
		if !e.perFile {
			out = append(out, textpatch.Set{Name: string(e.group), Patches: patches})
			continue
		}
		for _, p := range patches {
			out = append(out, textpatch.Set{Name: p.ID, Patches: []textpatch.Patch{p}})
		}
	}
	return out, nil
}

// For returns the ordered patches of the selected groups, flattened.
func For(library string, enabled ...Group) ([]textpatch.Patch, error) {
	sets, err := Sets(library, enabled...)
	if err != nil {
		return nil, err
	}
	var out []textpatch.Patch
	for _, s := range sets {
		out = append(out, s.Patches...)
	}
	return out, nil
}

// All returns every patch for library in application order.
func All(library string) []textpatch.Patch {
	out, err := For(library)
	if err != nil {
		return nil
	}
	return out
}

func hasGroup(entries []entry, g Group) bool {
	for _, e := range entries {
		if e.group == g {
			return true
		}
	}
	return false
}
