package patches

import "github.com/roach88/mdxprep/internal/textpatch"

// BankSize is the number of ADPCM samples addressed by one bank.
const BankSize = 96

const pdxBankHeader = "#define PDX_BANK_SIZE 96 /* mdxprep:pdx-bank */\n"

const pdxLoad = `static uint32_t pdx_read_be32(const uint8_t *p) {
	return ((uint32_t)p[0] << 24) | ((uint32_t)p[1] << 16) | ((uint32_t)p[2] << 8) | (uint32_t)p[3];
}

int pdx_load(struct pdx_file *f, uint8_t *data, int len) {
	/* mdxprep:pdx-load */
	int i, count = PDX_BANK_SIZE;
	uint32_t lowest = 0;

	memset(f, 0, sizeof(*f));
	for(i = 0; i < PDX_BANK_SIZE && i * 8 + 8 <= len; i++) {
		uint32_t ofs = pdx_read_be32(data + i * 8);
		if(ofs != 0 && (lowest == 0 || ofs < lowest)) lowest = ofs;
	}
	/* the directory ends where the first sample's data begins */
	if(lowest != 0 && (lowest & 7) == 0 && lowest <= (uint32_t)len)
		count = (int)(lowest / 8);

	f->samples = calloc(count, sizeof(struct pdx_sample));
	if(!f->samples) return -1;
	f->num_samples = count;
	for(i = 0; i < count && i * 8 + 8 <= len; i++) {
		uint32_t ofs = pdx_read_be32(data + i * 8);
		uint32_t l = pdx_read_be32(data + i * 8 + 4);
		if(ofs == 0 || l == 0 || ofs >= (uint32_t)len) continue;
		if(l > (uint32_t)len - ofs) l = (uint32_t)len - ofs;
		f->samples[i].data = data + ofs;
		f->samples[i].len = (int)l;
	}
	return 0;
}`

const pdxFree = `void pdx_free(struct pdx_file *f) {
	/* mdxprep:pdx-free */
	free(f->samples);
	f->samples = NULL;
	f->num_samples = 0;
}`

const trackBankField = "\tint bank; /* mdxprep:track-bank */\n"

const bankLookupOld = "\t\tstruct pdx_sample *s = &d->pdx->samples[t->note];\n" +
	"\t\tif(s->data && s->len > 0)\n"

const bankLookupNew = "\t\tint idx = t->note + t->bank * PDX_BANK_SIZE; /* mdxprep:bank-lookup */\n" +
	"\t\tstruct pdx_sample *s;\n" +
	"\t\tif(!d->pdx || idx < 0 || idx >= d->pdx->num_samples) return;\n" +
	"\t\ts = &d->pdx->samples[idx];\n" +
	"\t\tif(s->data && s->len > 0)\n"

const bankOpcodeAnchor = "\t\tcase 0x01: /* fade out */\n"

const bankOpcode = "\t\tcase 0x02: /* mdxprep:bank-opcode */\n" +
	"\t\t\tif(t->pos >= t->data_len) return -1;\n" +
	"\t\t\tif(t->channel >= 8)\n" +
	"\t\t\t\tt->bank = t->data[t->pos];\n" +
	"\t\t\tt->pos++;\n" +
	"\t\t\tbreak;\n"

func bankPatches() []textpatch.Patch {
	return []textpatch.Patch{
		{
			ID:     "pdx-bank-header",
			Path:   "pdx.h",
			Marker: "mdxprep:pdx-bank",
			Transform: textpatch.Sequence{
				textpatch.InsertAfter("#define PDX_NUM_SAMPLES 96\n", pdxBankHeader),
				textpatch.Anchored{Begin: "struct pdx_sample {", End: "};", Block: "\n\tuint8_t *data;\n\tint len;\n"},
				textpatch.Anchored{Begin: "struct pdx_file {", End: "};", Block: "\n\tstruct pdx_sample *samples;\n\tint num_samples;\n"},
			},
		},
		{
			ID:     "pdx-bank-load",
			Path:   "pdx.c",
			Marker: "mdxprep:pdx-load",
			Transform: textpatch.Sequence{
				textpatch.Balanced{Signature: "int pdx_load(", Replacement: pdxLoad},
				textpatch.Balanced{Signature: "void pdx_free(", Replacement: pdxFree},
			},
		},
		{
			ID:        "track-bank-field",
			Path:      "mdx_driver.h",
			Marker:    "mdxprep:track-bank",
			Transform: textpatch.InsertAfter("\tint key_on_delay_counter;\n", trackBankField),
		},
		{
			ID:        "bank-lookup",
			Path:      "mdx_driver.c",
			Marker:    "mdxprep:bank-lookup",
			Transform: textpatch.Literal{Old: bankLookupOld, New: bankLookupNew},
		},
		{
			ID:     "bank-opcode",
			Path:   "mdx_driver.c",
			Marker: "mdxprep:bank-opcode",
			Transform: textpatch.Literal{
				Old: bankOpcodeAnchor,
				New: bankOpcode + bankOpcodeAnchor,
			},
		},
	}
}
