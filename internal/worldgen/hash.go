package worldgen

// hash32 is a Murmur-style finalizer: cheap, stable across versions and platforms.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// hash2 hashes a lattice point with a seed.
func hash2(seed uint32, x, y int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(y) * 0x85ebca6b
	return hash32(h)
}

// lattice returns the value at a lattice point in [0, 1).
func lattice(seed uint32, x, y int32) float64 {
	return float64(hash2(seed, x, y)>>8) / float64(1<<24)
}
