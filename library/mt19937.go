package library

// mt19937 is the 32-bit Mersenne Twister seeded with init_by_array.
// Pages generated by earlier releases were produced by this exact stream,
// so its constants and seeding must stay bit-for-bit stable.
type mt19937 struct {
	state [mtN]uint32
	index int
}

const (
	mtN         = 624
	mtM         = 397
	mtMatrixA   = 0x9908b0df
	mtUpperMask = 0x80000000
	mtLowerMask = 0x7fffffff
)

// newMT19937 seeds a generator from a non-negative integer. The seed is
// split into 32-bit little-endian words; zero seeds with a single zero word.
func newMT19937(seed uint64) *mt19937 {
	key := []uint32{uint32(seed)}
	if hi := uint32(seed >> 32); hi != 0 {
		key = append(key, hi)
	}
	m := &mt19937{}
	m.seedByArray(key)
	return m
}

func (m *mt19937) seed(s uint32) {
	m.state[0] = s
	for i := 1; i < mtN; i++ {
		prev := m.state[i-1]
		m.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	m.index = mtN
}

func (m *mt19937) seedByArray(key []uint32) {
	m.seed(19650218)
	i, j := 1, 0
	k := max(mtN, len(key))
	for ; k > 0; k-- {
		prev := m.state[i-1]
		m.state[i] = (m.state[i] ^ ((prev ^ (prev >> 30)) * 1664525)) + key[j] + uint32(j)
		i++
		j++
		if i >= mtN {
			m.state[0] = m.state[mtN-1]
			i = 1
		}
		if j >= len(key) {
			j = 0
		}
	}
	for k = mtN - 1; k > 0; k-- {
		prev := m.state[i-1]
		m.state[i] = (m.state[i] ^ ((prev ^ (prev >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= mtN {
			m.state[0] = m.state[mtN-1]
			i = 1
		}
	}
	m.state[0] = 0x80000000
}

func (m *mt19937) twist() {
	var y uint32
	for kk := 0; kk < mtN-mtM; kk++ {
		y = (m.state[kk] & mtUpperMask) | (m.state[kk+1] & mtLowerMask)
		m.state[kk] = m.state[kk+mtM] ^ (y >> 1) ^ ((y & 1) * mtMatrixA)
	}
	for kk := mtN - mtM; kk < mtN-1; kk++ {
		y = (m.state[kk] & mtUpperMask) | (m.state[kk+1] & mtLowerMask)
		m.state[kk] = m.state[kk+(mtM-mtN)] ^ (y >> 1) ^ ((y & 1) * mtMatrixA)
	}
	y = (m.state[mtN-1] & mtUpperMask) | (m.state[0] & mtLowerMask)
	m.state[mtN-1] = m.state[mtM-1] ^ (y >> 1) ^ ((y & 1) * mtMatrixA)
	m.index = 0
}

// Uint32 returns the next tempered output.
func (m *mt19937) Uint32() uint32 {
	if m.index >= mtN {
		m.twist()
	}
	y := m.state[m.index]
	m.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// Float64 returns a float in [0, 1) with 53 bits of precision, built from
// two consecutive outputs.
func (m *mt19937) Float64() float64 {
	a := m.Uint32() >> 5
	b := m.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}
