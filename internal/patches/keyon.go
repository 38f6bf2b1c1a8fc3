package patches

import "github.com/roach88/mdxprep/internal/textpatch"

// The staccato countdown is held while a key-on delay is pending and is
// reloaded when the delayed key-on fires.
const keyOnTimers = `
	/* mdxprep:keyon-staccato */
	if(t->key_on_delay_counter > 0) {
		t->key_on_delay_counter--;
		if(t->key_on_delay_counter == 0) {
			mdx_driver_note_on(d, t);
			t->staccato_counter = t->staccato;
			if(t->staccato_counter == 0)
				mdx_driver_note_off(d, t);
		}
	} else if(t->staccato_counter > 0) {
		t->staccato_counter--;
		if(t->staccato_counter == 0)
			mdx_driver_note_off(d, t);
	}
	`

func keyOnPatches() []textpatch.Patch {
	return []textpatch.Patch{{
		ID:     "keyon-staccato",
		Path:   "mdx_driver.c",
		Marker: "mdxprep:keyon-staccato",
		Transform: textpatch.Anchored{
			Begin: "/* timers */",
			End:   "/* end timers */",
			Block: keyOnTimers,
		},
	}}
}
