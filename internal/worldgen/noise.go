package worldgen

import "math"

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

// valueNoise samples smoothed lattice noise at (x, y), in [0, 1).
func valueNoise(seed uint32, x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	x0, y0 := int32(fx), int32(fy)
	tx, ty := smoothstep(x-fx), smoothstep(y-fy)

	a := lattice(seed, x0, y0)
	b := lattice(seed, x0+1, y0)
	c := lattice(seed, x0, y0+1)
	d := lattice(seed, x0+1, y0+1)

	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty
}

// fbm sums octaves of value noise, halving amplitude and doubling frequency
// each octave, normalised back into [0, 1).
func fbm(seed uint32, x, y float64, octaves int) float64 {
	sum, amp, norm, freq := 0.0, 1.0, 0.0, 1.0
	for i := 0; i < octaves; i++ {
		sum += amp * valueNoise(seed+uint32(i)*0x632be5ab, x*freq, y*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
