package patches

import (
	"regexp"

	"github.com/roach88/mdxprep/internal/textpatch"
)

// StreamHeader is the name stream.h is renamed to inside mdxtools so it
// cannot shadow the platform's own stream.h.
const StreamHeader = "stream_mdxtools.h"

var streamInclude = regexp.MustCompile(`#include\s*"stream\.h"`)

// Files in mdxtools that include stream.h.
var streamIncluders = []string{
	"adpcm_pcm_mix_driver.h",
	"fixed_resampler.h",
	"mdx_driver.h",
	"resampler.h",
}

func streamIncludePatches() []textpatch.Patch {
	out := make([]textpatch.Patch, 0, len(streamIncluders))
	for _, path := range streamIncluders {
		out = append(out, textpatch.Patch{
			ID:     "stream-include:" + path,
			Path:   path,
			Marker: `"` + StreamHeader + `"`,
			Transform: textpatch.Regex{
				Pattern:     streamInclude,
				Replacement: `#include "` + StreamHeader + `"`,
				Max:         4,
			},
		})
	}
	return out
}
