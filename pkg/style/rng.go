package style

// defaultSeed replaces a zero seed, which would lock xorshift at zero.
const defaultSeed uint64 = 0x9E3779B97F4A7C15

// Rand is a xorshift64* generator. It holds one word of state and never
// allocates, locks or calls into the OS, so it is safe on the audio thread.
// A Rand is not safe for concurrent use.
type Rand struct {
	state uint64
}

// NewRand returns a generator seeded with seed.
func NewRand(seed uint64) *Rand {
	r := &Rand{}
	r.Seed(seed)
	return r
}

// Seed resets the generator. The same seed yields the same sequence.
func (r *Rand) Seed(seed uint64) {
	if seed == 0 {
		seed = defaultSeed
	}
	r.state = seed
}

// Uint64 returns the next 64 random bits.
func (r *Rand) Uint64() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 0x2545F4914F6CDD1D
}

// Float64 returns a value uniform in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Bipolar returns a value uniform in [-1, 1).
func (r *Rand) Bipolar() float64 {
	return r.Float64()*2 - 1
}
