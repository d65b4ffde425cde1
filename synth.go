package mpa

// polyphase is the synthesis filter bank state of one channel: a ring of the last
// 16 matrixed blocks of 64 V values, newest at pos.
type polyphase struct {
	v   [1024]float32
	pos int
}

func (p *polyphase) reset() {
	p.v = [1024]float32{}
	p.pos = 0
}

// synthesize turns one set of 32 subband samples into 32 output samples in [-1, 1].
func (p *polyphase) synthesize(s *[32]float32, out *[32]float32) {
	// Shifting step
	p.pos = (p.pos - 64) & 1023

	v := p.v[p.pos : p.pos+64]
	if silent(s) {
		clear(v)
	} else {
		idct32(s, v)
	}

	// Windowing: U is built from the first and last quarter of every 128 V values.
	for j := 0; j < 32; j++ {
		w := &synthWindow[j]

		var sum float32
		for i := 0; i < 8; i++ {
			k := p.pos + i<<7 + j
			sum += w[i<<1]*p.v[k&1023] + w[i<<1+1]*p.v[(k+96)&1023]
		}

		out[j] = sum
	}
}

func silent(s *[32]float32) bool {
	for _, x := range s {
		if x != 0 {
			return false
		}
	}

	return true
}

// idct32 is the matrixing step, V[i] = sum S[k] * cos((16+i)(2k+1)pi/64) for the 64 values
// of d, computed with a fast 32-point DCT.
func idct32(s *[32]float32, d []float32) {
	var t01, t02, t03, t04, t05, t06, t07, t08, t09, t10, t11, t12,
		t13, t14, t15, t16, t17, t18, t19, t20, t21, t22, t23, t24,
		t25, t26, t27, t28, t29, t30, t31, t32, t33 float32

	t01 = s[0] + s[31]
	t02 = (s[0] - s[31]) * 0.500602998235
	t03 = s[1] + s[30]
	t04 = (s[1] - s[30]) * 0.505470959898
	t05 = s[2] + s[29]
	t06 = (s[2] - s[29]) * 0.515447309923
	t07 = s[3] + s[28]
	t08 = (s[3] - s[28]) * 0.53104259109
	t09 = s[4] + s[27]
	t10 = (s[4] - s[27]) * 0.553103896034
	t11 = s[5] + s[26]
	t12 = (s[5] - s[26]) * 0.582934968206
	t13 = s[6] + s[25]
	t14 = (s[6] - s[25]) * 0.622504123036
	t15 = s[7] + s[24]
	t16 = (s[7] - s[24]) * 0.674808341455
	t17 = s[8] + s[23]
	t18 = (s[8] - s[23]) * 0.744536271002
	t19 = s[9] + s[22]
	t20 = (s[9] - s[22]) * 0.839349645416
	t21 = s[10] + s[21]
	t22 = (s[10] - s[21]) * 0.972568237862
	t23 = s[11] + s[20]
	t24 = (s[11] - s[20]) * 1.16943993343
	t25 = s[12] + s[19]
	t26 = (s[12] - s[19]) * 1.48416461631
	t27 = s[13] + s[18]
	t28 = (s[13] - s[18]) * 2.05778100995
	t29 = s[14] + s[17]
	t30 = (s[14] - s[17]) * 3.40760841847
	t31 = s[15] + s[16]
	t32 = (s[15] - s[16]) * 10.1900081235

	t33 = t01 + t31
	t31 = (t01 - t31) * 0.502419286188
	t01 = t03 + t29
	t29 = (t03 - t29) * 0.52249861494
	t03 = t05 + t27
	t27 = (t05 - t27) * 0.566944034816
	t05 = t07 + t25
	t25 = (t07 - t25) * 0.64682178336
	t07 = t09 + t23
	t23 = (t09 - t23) * 0.788154623451
	t09 = t11 + t21
	t21 = (t11 - t21) * 1.06067768599
	t11 = t13 + t19
	t19 = (t13 - t19) * 1.72244709824
	t13 = t15 + t17
	t17 = (t15 - t17) * 5.10114861869
	t15 = t33 + t13
	t13 = (t33 - t13) * 0.509795579104
	t33 = t01 + t11
	t01 = (t01 - t11) * 0.601344886935
	t11 = t03 + t09
	t09 = (t03 - t09) * 0.899976223136
	t03 = t05 + t07
	t07 = (t05 - t07) * 2.56291544774
	t05 = t15 + t03
	t15 = (t15 - t03) * 0.541196100146
	t03 = t33 + t11
	t11 = (t33 - t11) * 1.30656296488
	t33 = t05 + t03
	t05 = (t05 - t03) * 0.707106781187
	t03 = t15 + t11
	t15 = (t15 - t11) * 0.707106781187
	t03 += t15
	t11 = t13 + t07
	t13 = (t13 - t07) * 0.541196100146
	t07 = t01 + t09
	t09 = (t01 - t09) * 1.30656296488
	t01 = t11 + t07
	t07 = (t11 - t07) * 0.707106781187
	t11 = t13 + t09
	t13 = (t13 - t09) * 0.707106781187
	t11 += t13
	t01 += t11
	t11 += t07
	t07 += t13
	t09 = t31 + t17
	t31 = (t31 - t17) * 0.509795579104
	t17 = t29 + t19
	t29 = (t29 - t19) * 0.601344886935
	t19 = t27 + t21
	t21 = (t27 - t21) * 0.899976223136
	t27 = t25 + t23
	t23 = (t25 - t23) * 2.56291544774
	t25 = t09 + t27
	t09 = (t09 - t27) * 0.541196100146
	t27 = t17 + t19
	t19 = (t17 - t19) * 1.30656296488
	t17 = t25 + t27
	t27 = (t25 - t27) * 0.707106781187
	t25 = t09 + t19
	t19 = (t09 - t19) * 0.707106781187
	t25 += t19
	t09 = t31 + t23
	t31 = (t31 - t23) * 0.541196100146
	t23 = t29 + t21
	t21 = (t29 - t21) * 1.30656296488
	t29 = t09 + t23
	t23 = (t09 - t23) * 0.707106781187
	t09 = t31 + t21
	t31 = (t31 - t21) * 0.707106781187
	t09 += t31
	t29 += t09
	t09 += t23
	t23 += t31
	t17 += t29
	t29 += t25
	t25 += t09
	t09 += t27
	t27 += t23
	t23 += t19
	t19 += t31
	t21 = t02 + t32
	t02 = (t02 - t32) * 0.502419286188
	t32 = t04 + t30
	t04 = (t04 - t30) * 0.52249861494
	t30 = t06 + t28
	t28 = (t06 - t28) * 0.566944034816
	t06 = t08 + t26
	t08 = (t08 - t26) * 0.64682178336
	t26 = t10 + t24
	t10 = (t10 - t24) * 0.788154623451
	t24 = t12 + t22
	t22 = (t12 - t22) * 1.06067768599
	t12 = t14 + t20
	t20 = (t14 - t20) * 1.72244709824
	t14 = t16 + t18
	t16 = (t16 - t18) * 5.10114861869
	t18 = t21 + t14
	t14 = (t21 - t14) * 0.509795579104
	t21 = t32 + t12
	t32 = (t32 - t12) * 0.601344886935
	t12 = t30 + t24
	t24 = (t30 - t24) * 0.899976223136
	t30 = t06 + t26
	t26 = (t06 - t26) * 2.56291544774
	t06 = t18 + t30
	t18 = (t18 - t30) * 0.541196100146
	t30 = t21 + t12
	t12 = (t21 - t12) * 1.30656296488
	t21 = t06 + t30
	t30 = (t06 - t30) * 0.707106781187
	t06 = t18 + t12
	t12 = (t18 - t12) * 0.707106781187
	t06 += t12
	t18 = t14 + t26
	t26 = (t14 - t26) * 0.541196100146
	t14 = t32 + t24
	t24 = (t32 - t24) * 1.30656296488
	t32 = t18 + t14
	t14 = (t18 - t14) * 0.707106781187
	t18 = t26 + t24
	t24 = (t26 - t24) * 0.707106781187
	t18 += t24
	t32 += t18
	t18 += t14
	t26 = t14 + t24
	t14 = t02 + t16
	t02 = (t02 - t16) * 0.509795579104
	t16 = t04 + t20
	t04 = (t04 - t20) * 0.601344886935
	t20 = t28 + t22
	t22 = (t28 - t22) * 0.899976223136
	t28 = t08 + t10
	t10 = (t08 - t10) * 2.56291544774
	t08 = t14 + t28
	t14 = (t14 - t28) * 0.541196100146
	t28 = t16 + t20
	t20 = (t16 - t20) * 1.30656296488
	t16 = t08 + t28
	t28 = (t08 - t28) * 0.707106781187
	t08 = t14 + t20
	t20 = (t14 - t20) * 0.707106781187
	t08 += t20
	t14 = t02 + t10
	t02 = (t02 - t10) * 0.541196100146
	t10 = t04 + t22
	t22 = (t04 - t22) * 1.30656296488
	t04 = t14 + t10
	t10 = (t14 - t10) * 0.707106781187
	t14 = t02 + t22
	t02 = (t02 - t22) * 0.707106781187
	t14 += t02
	t04 += t14
	t14 += t10
	t10 += t02
	t16 += t04
	t04 += t08
	t08 += t14
	t14 += t28
	t28 += t10
	t10 += t20
	t20 += t02
	t21 += t16
	t16 += t32
	t32 += t04
	t04 += t06
	t06 += t08
	t08 += t18
	t18 += t14
	t14 += t30
	t30 += t28
	t28 += t26
	t26 += t10
	t10 += t12
	t12 += t20
	t20 += t24
	t24 += t02

	d[48] = -t33
	d[49] = -t21
	d[47] = -t21
	d[50] = -t17
	d[46] = -t17
	d[51] = -t16
	d[45] = -t16
	d[52] = -t01
	d[44] = -t01
	d[53] = -t32
	d[43] = -t32
	d[54] = -t29
	d[42] = -t29
	d[55] = -t04
	d[41] = -t04
	d[56] = -t03
	d[40] = -t03
	d[57] = -t06
	d[39] = -t06
	d[58] = -t25
	d[38] = -t25
	d[59] = -t08
	d[37] = -t08
	d[60] = -t11
	d[36] = -t11
	d[61] = -t18
	d[35] = -t18
	d[62] = -t09
	d[34] = -t09
	d[63] = -t14
	d[33] = -t14
	d[32] = -t05
	d[0] = t05
	d[31] = -t30
	d[1] = t30
	d[30] = -t27
	d[2] = t27
	d[29] = -t28
	d[3] = t28
	d[28] = -t07
	d[4] = t07
	d[27] = -t26
	d[5] = t26
	d[26] = -t23
	d[6] = t23
	d[25] = -t10
	d[7] = t10
	d[24] = -t15
	d[8] = t15
	d[23] = -t12
	d[9] = t12
	d[22] = -t19
	d[10] = t19
	d[21] = -t20
	d[11] = t20
	d[20] = -t13
	d[12] = t13
	d[19] = -t24
	d[13] = t24
	d[18] = -t31
	d[14] = t31
	d[17] = -t02
	d[15] = t02
	d[16] = 0.0
}
