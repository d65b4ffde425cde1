package mpa

func (f *frameDecoder) decodeLayerI() error {
	channels := f.header.Channels()
	bound := f.header.Bound()

	// Bit allocation, 15 is forbidden
	for sb := 0; sb < 32; sb++ {
		if sb < bound {
			for ch := 0; ch < channels; ch++ {
				a := f.br.read(4)
				if a == 15 {
					return errBadAllocation
				}
				f.allocation1[ch][sb] = a
			}

			continue
		}

		a := f.br.read(4)
		if a == 15 {
			return errBadAllocation
		}
		f.allocation1[0][sb] = a
		f.allocation1[1][sb] = a
	}

	if err := f.checkCRC(4 * (bound*channels + 32 - bound)); err != nil {
		return err
	}

	// Scale factors
	for sb := 0; sb < 32; sb++ {
		for ch := 0; ch < channels; ch++ {
			if f.allocation1[ch][sb] != 0 {
				f.scaleFactor[ch][sb][0] = f.br.read(6)
			}
		}
	}

	// Samples
	for s := 0; s < 12; s++ {
		for sb := 0; sb < 32; sb++ {
			if sb < bound {
				for ch := 0; ch < channels; ch++ {
					f.sample[ch][s][sb] = f.readSampleI(f.allocation1[ch][sb], ch, sb)
				}

				continue
			}

			a := f.allocation1[0][sb]
			if a == 0 {
				f.sample[0][s][sb] = 0
				f.sample[1][s][sb] = 0

				continue
			}

			// Intensity stereo: one code, scaled per channel
			v := layer1Quant[a].dequantize(f.br.read(a + 1))
			for ch := 0; ch < channels; ch++ {
				f.sample[ch][s][sb] = v * scalefactors[f.scaleFactor[ch][sb][0]]
			}
		}
	}

	f.slots = 12

	return nil
}

func (f *frameDecoder) readSampleI(a, ch, sb int) float32 {
	if a == 0 {
		return 0
	}

	return layer1Quant[a].dequantize(f.br.read(a+1)) * scalefactors[f.scaleFactor[ch][sb][0]]
}
