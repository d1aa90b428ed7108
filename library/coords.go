package library

import (
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/babel/core"
)

// Library architecture. The page is the least significant digit of an
// address and the hexagon the most significant.
const (
	PagesPerVolume  = 100
	VolumesPerShelf = 10
	ShelvesPerWall  = 4
	WallsPerHexagon = 6

	PagesPerShelf   = PagesPerVolume * VolumesPerShelf
	PagesPerWall    = PagesPerShelf * ShelvesPerWall
	PagesPerHexagon = PagesPerWall * WallsPerHexagon
)

const maxAddress = math.MaxInt64

// Level names one field of a Coordinate.
type Level int

const (
	LevelHexagon Level = iota
	LevelWall
	LevelShelf
	LevelVolume
	LevelPage
)

var levelNames = [...]string{"hexagon", "wall", "shelf", "volume", "page"}

func (l Level) String() string {
	if l < LevelHexagon || l > LevelPage {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name such as "wall" or its initial ("w").
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name || (len(s) == 1 && s[0] == name[0]) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown level %q", core.ErrInvalidCoordinate, s)
}

// Coordinate is the hierarchical location of a page.
type Coordinate struct {
	Hexagon int64
	Wall    int
	Shelf   int
	Volume  int
	Page    int
}

// String formats the coordinate as H<n>:W<n>:S<n>:V<n>:P<n>.
func (c Coordinate) String() string {
	return fmt.Sprintf("H%d:W%d:S%d:V%d:P%d", c.Hexagon, c.Wall, c.Shelf, c.Volume, c.Page)
}

// ParseCoordinate parses the format produced by Coordinate.String.
func ParseCoordinate(s string) (Coordinate, error) {
	var c Coordinate
	n, err := fmt.Sscanf(strings.TrimSpace(s), "H%d:W%d:S%d:V%d:P%d", &c.Hexagon, &c.Wall, &c.Shelf, &c.Volume, &c.Page)
	if err != nil || n != 5 {
		return Coordinate{}, fmt.Errorf("%w: cannot parse %q", core.ErrInvalidCoordinate, s)
	}
	if _, err := ToAddress(c); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ToCoordinate decomposes an address into its coordinate.
func ToCoordinate(address core.Address) (Coordinate, error) {
	if err := core.ValidateAddress(address); err != nil {
		return Coordinate{}, err
	}
	a := int64(address)
	return Coordinate{
		Page:    int(a % PagesPerVolume),
		Volume:  int(a / PagesPerVolume % VolumesPerShelf),
		Shelf:   int(a / PagesPerShelf % ShelvesPerWall),
		Wall:    int(a / PagesPerWall % WallsPerHexagon),
		Hexagon: a / PagesPerHexagon,
	}, nil
}

// ToAddress encodes a coordinate. Every field must be within its radix.
func ToAddress(c Coordinate) (core.Address, error) {
	switch {
	case c.Hexagon < 0:
		return 0, fmt.Errorf("%w: hexagon %d is negative", core.ErrInvalidCoordinate, c.Hexagon)
	case c.Wall < 0 || c.Wall >= WallsPerHexagon:
		return 0, fmt.Errorf("%w: wall %d outside [0,%d)", core.ErrInvalidCoordinate, c.Wall, WallsPerHexagon)
	case c.Shelf < 0 || c.Shelf >= ShelvesPerWall:
		return 0, fmt.Errorf("%w: shelf %d outside [0,%d)", core.ErrInvalidCoordinate, c.Shelf, ShelvesPerWall)
	case c.Volume < 0 || c.Volume >= VolumesPerShelf:
		return 0, fmt.Errorf("%w: volume %d outside [0,%d)", core.ErrInvalidCoordinate, c.Volume, VolumesPerShelf)
	case c.Page < 0 || c.Page >= PagesPerVolume:
		return 0, fmt.Errorf("%w: page %d outside [0,%d)", core.ErrInvalidCoordinate, c.Page, PagesPerVolume)
	}
	return encode([5]int64{c.Hexagon, int64(c.Wall), int64(c.Shelf), int64(c.Volume), int64(c.Page)})
}

// Adjust moves one field by delta, clamping it at 0, and re-encodes.
// Fields pushed past their radix carry into the next level, so adjusting
// the page of P99 by +1 lands on page 0 of the next volume.
func (c Coordinate) Adjust(level Level, delta int64) (Coordinate, error) {
	if level < LevelHexagon || level > LevelPage {
		return Coordinate{}, fmt.Errorf("%w: unknown level %d", core.ErrInvalidCoordinate, level)
	}
	fields := [5]int64{c.Hexagon, int64(c.Wall), int64(c.Shelf), int64(c.Volume), int64(c.Page)}
	v := fields[level]
	if delta > 0 && v > maxAddress-delta {
		return Coordinate{}, fmt.Errorf("%w: %s %d%+d", core.ErrAddressOverflow, level, v, delta)
	}
	fields[level] = max(v+delta, 0)

	address, err := encode(fields)
	if err != nil {
		return Coordinate{}, err
	}
	return ToCoordinate(address)
}

// encode combines fields without radix checks, failing on int64 overflow.
func encode(fields [5]int64) (core.Address, error) {
	radix := [5]int64{0, WallsPerHexagon, ShelvesPerWall, VolumesPerShelf, PagesPerVolume}
	acc := fields[0]
	for i := 1; i < len(fields); i++ {
		if acc > (maxAddress-fields[i])/radix[i] {
			return 0, fmt.Errorf("%w: %v", core.ErrAddressOverflow, fields)
		}
		acc = acc*radix[i] + fields[i]
	}
	return core.Address(acc), nil
}

// Grid returns a square of addresses around center for browsing. Rows step
// by one volume and columns by one page; cells that would fall below 0 are 0.
func Grid(center core.Address, size int) [][]core.Address {
	half := max(size, 1) / 2
	grid := make([][]core.Address, 0, 2*half+1)
	for row := -half; row <= half; row++ {
		cells := make([]core.Address, 0, 2*half+1)
		for col := -half; col <= half; col++ {
			a := center + core.Address(row*PagesPerVolume+col)
			if a < 0 {
				a = 0
			}
			cells = append(cells, a)
		}
		grid = append(grid, cells)
	}
	return grid
}
