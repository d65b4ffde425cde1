package mpa

func (f *frameDecoder) decodeLayerII() error {
	h := f.header

	table := AllocationFor(h.Version, h.Mode, h.BitrateIndex, h.SamplerateIndex)
	sblimit := table.Subbands()
	row := table.row()

	channels := h.Channels()
	bound := h.Bound()
	if bound > sblimit {
		bound = sblimit
	}

	bits := 0

	// Read the allocation information
	for sb := 0; sb < bound; sb++ {
		for ch := 0; ch < channels; ch++ {
			f.allocation[ch][sb] = f.readAllocation(sb, row, &bits)
		}
	}

	for sb := bound; sb < sblimit; sb++ {
		f.allocation[0][sb] = f.readAllocation(sb, row, &bits)
		f.allocation[1][sb] = f.allocation[0][sb]
	}

	for sb := sblimit; sb < 32; sb++ {
		f.allocation[0][sb] = nil
		f.allocation[1][sb] = nil
	}

	// Read scale factor selector information
	for sb := 0; sb < sblimit; sb++ {
		for ch := 0; ch < channels; ch++ {
			if f.allocation[ch][sb] != nil {
				f.scaleFactorInfo[ch][sb] = byte(f.br.read(2))
				bits += 2
			}
		}
	}

	if err := f.checkCRC(bits); err != nil {
		return err
	}

	// Read scale factors
	for sb := 0; sb < sblimit; sb++ {
		for ch := 0; ch < channels; ch++ {
			if f.allocation[ch][sb] == nil {
				continue
			}

			sf := &f.scaleFactor[ch][sb]
			switch f.scaleFactorInfo[ch][sb] {
			case 0:
				sf[0] = f.br.read(6)
				sf[1] = f.br.read(6)
				sf[2] = f.br.read(6)
			case 1:
				tmp := f.br.read(6)
				sf[0] = tmp
				sf[1] = tmp
				sf[2] = f.br.read(6)
			case 2:
				tmp := f.br.read(6)
				sf[0] = tmp
				sf[1] = tmp
				sf[2] = tmp
			case 3:
				sf[0] = f.br.read(6)
				tmp := f.br.read(6)
				sf[1] = tmp
				sf[2] = tmp
			}
		}
	}

	// Coefficient input, 3 parts of 4 granules of 3 samples
	for part := 0; part < 3; part++ {
		for granule := 0; granule < 4; granule++ {
			slot := (part*4 + granule) * 3

			for sb := 0; sb < bound; sb++ {
				for ch := 0; ch < channels; ch++ {
					f.readSamples(ch, ch, sb, part, slot)
				}
			}

			for sb := bound; sb < sblimit; sb++ {
				f.readSamples(0, channels-1, sb, part, slot)
			}

			for sb := sblimit; sb < 32; sb++ {
				for ch := 0; ch < channels; ch++ {
					f.sample[ch][slot][sb] = 0
					f.sample[ch][slot+1][sb] = 0
					f.sample[ch][slot+2][sb] = 0
				}
			}
		}
	}

	f.slots = maxSlots

	return nil
}

func (f *frameDecoder) readAllocation(sb, row int, bits *int) *quantizerSpec {
	tab4 := quantLutStep3[row][sb]
	nbal := int(tab4 >> 4)
	*bits += nbal

	qtab := quantLutStep4[tab4&15][f.br.read(nbal)]
	if qtab != 0 {
		return &quantTab[qtab-1]
	}

	return nil
}

// readSamples reads the three samples of subband sb for channels first..last. Above the
// intensity stereo bound both channels share the codes and keep their own scale factors.
func (f *frameDecoder) readSamples(first, last, sb, part, slot int) {
	q := f.allocation[first][sb]
	if q == nil {
		// No bits allocated for this subband
		for ch := first; ch <= last; ch++ {
			f.sample[ch][slot][sb] = 0
			f.sample[ch][slot+1][sb] = 0
			f.sample[ch][slot+2][sb] = 0
		}

		return
	}

	var code [3]int
	if q.Group != 0 {
		// Decode grouped samples
		levels := int(q.Levels)
		val := f.br.read(int(q.Bits))
		code[0] = val % levels
		val /= levels
		code[1] = val % levels
		code[2] = val / levels
	} else {
		// Decode direct samples
		code[0] = f.br.read(int(q.Bits))
		code[1] = f.br.read(int(q.Bits))
		code[2] = f.br.read(int(q.Bits))
	}

	var v [3]float32
	for i, c := range code {
		v[i] = q.dequantize(c)
	}

	for ch := first; ch <= last; ch++ {
		scale := scalefactors[f.scaleFactor[ch][sb][part]]
		f.sample[ch][slot][sb] = v[0] * scale
		f.sample[ch][slot+1][sb] = v[1] * scale
		f.sample[ch][slot+2][sb] = v[2] * scale
	}
}
