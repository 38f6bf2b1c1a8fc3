package patches

import "github.com/roach88/mdxprep/internal/textpatch"

const (
	mixHeader = "adpcm_pcm_mix_driver.h"
	mixSource = "adpcm_pcm_mix_driver.c"
)

const mixDriverFields = `
	struct adpcm_driver adpcm_driver;
	struct adpcm_pcm_mix_channel channels[8];
	struct fixed_resampler resamplers[4];
	struct resampler *out_resampler; /* NULL when sample_rate is the native rate */
	int sample_rate;
	int buf_size;
	int pan;
	/* mdxprep:mix-driver-fields */
	int mix_size;
	stream_sample_t *mix_buf_l, *mix_buf_r;
	stream_sample_t *decode_buf;
	stream_sample_t *bucket_buf;
	stream_sample_t *bucket_out;
`

const mixInit = `int adpcm_pcm_mix_driver_init(struct adpcm_pcm_mix_driver *driver, int sample_rate, int buf_size) {
	/* mdxprep:mix-init */
	int i, need, bucket_size = 0;
	memset(driver, 0, sizeof(*driver));
	driver->adpcm_driver.play = adpcm_pcm_mix_driver_play;
	driver->adpcm_driver.stop = adpcm_pcm_mix_driver_stop;
	driver->adpcm_driver.set_pan = adpcm_pcm_mix_driver_set_pan;
	driver->sample_rate = sample_rate;
	driver->buf_size = buf_size;
	driver->pan = 3;
	for(i = 0; i < 4; i++)
		fixed_resampler_init(&driver->resamplers[i], i);
	if(sample_rate != ADPCM_MIX_NATIVE_RATE) {
		driver->out_resampler = resampler_new(2, ADPCM_MIX_NATIVE_RATE, sample_rate);
		if(!driver->out_resampler) return -1;
	}
	driver->mix_size = adpcm_pcm_mix_driver_estimate(driver, buf_size);
	bucket_size = driver->mix_size;
	for(i = 0; i < 4; i++) {
		need = fixed_resampler_estimate(&driver->resamplers[i], driver->mix_size);
		if(need > bucket_size) bucket_size = need;
	}
	driver->mix_buf_l = calloc(driver->mix_size, sizeof(stream_sample_t));
	driver->mix_buf_r = calloc(driver->mix_size, sizeof(stream_sample_t));
	driver->decode_buf = calloc(bucket_size, sizeof(stream_sample_t));
	driver->bucket_buf = calloc(bucket_size, sizeof(stream_sample_t));
	driver->bucket_out = calloc(bucket_size, sizeof(stream_sample_t));
	if(!driver->mix_buf_l || !driver->mix_buf_r || !driver->decode_buf || !driver->bucket_buf || !driver->bucket_out) {
		adpcm_pcm_mix_driver_deinit(driver);
		return -1;
	}
	return 0;
}`

const mixDeinit = `void adpcm_pcm_mix_driver_deinit(struct adpcm_pcm_mix_driver *driver) {
	/* mdxprep:mix-deinit */
	if(driver->out_resampler) {
		resampler_free(driver->out_resampler);
		driver->out_resampler = NULL;
	}
	free(driver->mix_buf_l);
	free(driver->mix_buf_r);
	free(driver->decode_buf);
	free(driver->bucket_buf);
	free(driver->bucket_out);
	driver->mix_buf_l = driver->mix_buf_r = NULL;
	driver->decode_buf = driver->bucket_buf = driver->bucket_out = NULL;
}`

const mixEstimate = `int adpcm_pcm_mix_driver_estimate(struct adpcm_pcm_mix_driver *driver, int num_samples) {
	/* mdxprep:mix-estimate */
	int num, den;
	if(!driver->out_resampler) return num_samples;
	resampler_ratio(driver->out_resampler, &num, &den);
	return (int)((int64_t)num_samples * num / den) + 1;
}`

const mixRun = `int adpcm_pcm_mix_driver_run(struct adpcm_pcm_mix_driver *driver, stream_sample_t *out_l, stream_sample_t *out_r, int len) {
	/* mdxprep:mix-run */
	int i, ch, b, in_len, out_len, mix_len, active = 0;

	for(ch = 0; ch < 8; ch++)
		active |= driver->channels[ch].active;
	if(!active) {
		memset(out_l, 0, len * sizeof(stream_sample_t));
		memset(out_r, 0, len * sizeof(stream_sample_t));
		return 0;
	}

	mix_len = adpcm_pcm_mix_driver_estimate(driver, len);
	if(mix_len > driver->mix_size) mix_len = driver->mix_size;
	memset(driver->mix_buf_l, 0, mix_len * sizeof(stream_sample_t));
	memset(driver->mix_buf_r, 0, mix_len * sizeof(stream_sample_t));

	/* channels sharing a rate are summed, then resampled once per bucket */
	for(b = 0; b < 5; b++) {
		int used = 0, pan = 0, need = mix_len;
		stream_sample_t *acc = driver->bucket_buf;
		if(b < 4)
			need = fixed_resampler_estimate(&driver->resamplers[b], mix_len);
		for(ch = 0; ch < 8; ch++) {
			struct adpcm_pcm_mix_channel *c = &driver->channels[ch];
			if(!c->active || c->freq_num != b) continue;
			if(!used) memset(acc, 0, need * sizeof(stream_sample_t));
			used = 1;
			pan |= c->pan;
			adpcm_pcm_mix_driver_decode(c, driver->decode_buf, need);
			for(i = 0; i < need; i++)
				acc[i] += driver->decode_buf[i];
		}
		if(!used) continue;
		if(b < 4) {
			fixed_resampler_resample(&driver->resamplers[b], acc, need, driver->bucket_out, mix_len);
			acc = driver->bucket_out;
		}
		for(i = 0; i < mix_len; i++) {
			if(pan & 1) driver->mix_buf_l[i] += acc[i];
			if(pan & 2) driver->mix_buf_r[i] += acc[i];
		}
	}

	if(!driver->out_resampler) {
		memcpy(out_l, driver->mix_buf_l, len * sizeof(stream_sample_t));
		memcpy(out_r, driver->mix_buf_r, len * sizeof(stream_sample_t));
		return 0;
	}
	in_len = mix_len;
	out_len = len;
	resampler_process(driver->out_resampler, 0, driver->mix_buf_l, &in_len, out_l, &out_len);
	in_len = mix_len;
	out_len = len;
	resampler_process(driver->out_resampler, 1, driver->mix_buf_r, &in_len, out_r, &out_len);
	return 0;
}`

func mixPatches() []textpatch.Patch {
	return []textpatch.Patch{
		{
			ID:     "mix-driver-fields",
			Path:   mixHeader,
			Marker: "mdxprep:mix-driver-fields",
			Transform: textpatch.Anchored{
				Begin: "struct adpcm_pcm_mix_driver {",
				End:   "};",
				Block: mixDriverFields,
			},
		},
		{
			ID:     "mix-init",
			Path:   mixSource,
			Marker: "mdxprep:mix-init",
			Transform: textpatch.Balanced{
				Signature:   "int adpcm_pcm_mix_driver_init(",
				Replacement: mixInit,
			},
		},
		{
			ID:     "mix-deinit",
			Path:   mixSource,
			Marker: "mdxprep:mix-deinit",
			Transform: textpatch.Balanced{
				Signature:   "void adpcm_pcm_mix_driver_deinit(",
				Replacement: mixDeinit,
			},
		},
		{
			ID:     "mix-estimate",
			Path:   mixSource,
			Marker: "mdxprep:mix-estimate",
			Transform: textpatch.Balanced{
				Signature:   "int adpcm_pcm_mix_driver_estimate(",
				Replacement: mixEstimate,
			},
		},
		{
			ID:     "mix-run",
			Path:   mixSource,
			Marker: "mdxprep:mix-run",
			Transform: textpatch.Balanced{
				Signature:   "int adpcm_pcm_mix_driver_run(",
				Replacement: mixRun,
			},
		},
	}
}
