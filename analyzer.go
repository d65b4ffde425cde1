package mpa

// analyzer keeps the visualization taps of the last decoded frame. It only observes
// decoded data, the PCM output does not depend on it.
type analyzer struct {
	mode     AnalyzeMode
	switched bool

	spectrum [32]float32
	waveform []float32
}

func (a *analyzer) setMode(mode AnalyzeMode) {
	if mode != a.mode {
		a.mode = mode
		a.switched = true
	}
	a.reset()
}

func (a *analyzer) reset() {
	a.spectrum = [32]float32{}
	a.waveform = a.waveform[:0]
}

// update records the taps of a frame: mean subband magnitudes over all channels
// or the normalized waveform of the first channel.
func (a *analyzer) update(f *frameDecoder, pcm []int16, channels int) {
	switch a.mode {
	case AnalyzeSpectrum:
		norm := 1 / float32(f.slots*channels)
		for sb := 0; sb < 32; sb++ {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				for s := 0; s < f.slots; s++ {
					v := f.sample[ch][s][sb]
					if v < 0 {
						v = -v
					}
					sum += v
				}
			}
			a.spectrum[sb] = sum * norm
		}
	case AnalyzeWaveform:
		a.waveform = a.waveform[:0]
		for i := 0; i < len(pcm); i += channels {
			a.waveform = append(a.waveform, float32(pcm[i])/32768)
		}
	}
}

// view returns a copy of the current taps. Right after a mode change it returns the
// name of the new mode instead, once.
func (a *analyzer) view() ([]float32, string) {
	if a.switched {
		a.switched = false

		return nil, a.mode.String()
	}

	switch a.mode {
	case AnalyzeSpectrum:
		out := make([]float32, len(a.spectrum))
		copy(out, a.spectrum[:])

		return out, ""
	case AnalyzeWaveform:
		return append([]float32(nil), a.waveform...), ""
	}

	return nil, a.mode.String()
}
