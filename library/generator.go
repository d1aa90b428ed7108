package library

import (
	"fmt"

	"github.com/poiesic/babel/core"
)

// PageSource produces the page at an address. Generate is the only
// production implementation; tests substitute their own.
type PageSource func(address core.Address, length int) (string, error)

var _ PageSource = Generate

// Generate returns the page at address, exactly length symbols long.
//
// Each symbol is drawn independently from the Mersenne Twister stream
// seeded with the address, mapping a 53-bit uniform float onto the alphabet.
// The result depends only on (address, length); a longer page starts with
// the shorter one.
func Generate(address core.Address, length int) (string, error) {
	if err := core.ValidateAddress(address); err != nil {
		return "", err
	}
	if err := core.ValidateLength(length); err != nil {
		return "", err
	}

	rng := newMT19937(uint64(address))
	page := make([]byte, length)
	for i := range page {
		page[i] = core.Alphabet[int(rng.Float64()*float64(core.AlphabetSize))]
	}
	return string(page), nil
}

// MustGenerate is like Generate but panics on invalid input.
func MustGenerate(address core.Address, length int) string {
	page, err := Generate(address, length)
	if err != nil {
		panic(fmt.Sprintf("library: %v", err))
	}
	return page
}

// MaxRadius bounds the radius accepted by Adjacent.
const MaxRadius = 100_000

// Adjacent returns the addresses within radius of address, in increasing
// order, clamped at 0. The address itself is included. radius is capped at
// MaxRadius.
func Adjacent(address core.Address, radius int) []core.Address {
	if address < 0 {
		return nil
	}
	radius = min(max(radius, 0), MaxRadius)
	start := max(address-core.Address(radius), 0)
	end := address + core.Address(radius)
	if end < address {
		end = core.Address(maxAddress)
	}
	out := make([]core.Address, 0, end-start+1)
	for a := start; ; a++ {
		out = append(out, a)
		if a == end {
			break
		}
	}
	return out
}
