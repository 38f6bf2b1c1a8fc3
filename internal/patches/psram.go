package patches

import "github.com/roach88/mdxprep/internal/textpatch"

// PSRAMMarker is left in mxdrv_context.cpp once the allocation is patched.
const PSRAMMarker = "PATCH_PSRAM_ALLOC"

const (
	psramIncludeAnchor = `#include "mxdrv_context.internal.h"`
	psramInclude       = "\n\n#if defined(ESP32)\n#include <esp_heap_caps.h>\n#endif"
	psramMallocTarget  = "context->m_impl = (MxdrvContextImpl *)malloc(allocSizeInBytes);"
	psramMallocBlock   = "#if defined(ESP32)\n" +
		"\tcontext->m_impl = (MxdrvContextImpl *)heap_caps_malloc(allocSizeInBytes, MALLOC_CAP_SPIRAM | MALLOC_CAP_8BIT);\n" +
		"\tif (context->m_impl == NULL) {\n" +
		"\t\tcontext->m_impl = (MxdrvContextImpl *)malloc(allocSizeInBytes);\n" +
		"\t}\n" +
		"#else\n" +
		"\tcontext->m_impl = (MxdrvContextImpl *)malloc(allocSizeInBytes);\n" +
		"#endif\n" +
		"\t// " + PSRAMMarker + "\n"
)

// The include and the allocation change go in together or not at all, so a
// file without the malloc line is never left half patched.
func psramPatches() []textpatch.Patch {
	return []textpatch.Patch{{
		ID:     "psram-alloc",
		Path:   "src/mxdrv/mxdrv_context.cpp",
		Marker: PSRAMMarker,
		Transform: textpatch.Sequence{
			textpatch.InsertAfter(psramIncludeAnchor, psramInclude),
			textpatch.Literal{Old: psramMallocTarget, New: psramMallocBlock},
		},
	}}
}
