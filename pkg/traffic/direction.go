package traffic

import (
	"fmt"
	"strings"
)

// Direction identifies one approach to the intersection.
type Direction int

const (
	North Direction = iota
	East
	South
	West
	// NorthSouth and EastWest stand for an opposing pair served as one approach.
	NorthSouth
	EastWest
)

// MaxDirections is the most approaches a single intersection tracks.
const MaxDirections = 4

// Compass is the four-way approach order used by the independent scenario.
var Compass = []Direction{North, East, South, West}

// Pairs is the approach order used by the paired scenario.
var Pairs = []Direction{NorthSouth, EastWest}

var directionNames = map[Direction]string{
	North:      "N",
	East:       "E",
	South:      "S",
	West:       "W",
	NorthSouth: "NS",
	EastWest:   "EW",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

// ParseDirection accepts short (N, NS) and long (north, north-south) names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, nil
	case "e", "east":
		return East, nil
	case "s", "south":
		return South, nil
	case "w", "west":
		return West, nil
	case "ns", "n/s", "north-south", "northsouth":
		return NorthSouth, nil
	case "ew", "e/w", "east-west", "eastwest":
		return EastWest, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// MarshalText implements encoding.TextMarshaler so directions can key YAML maps.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown direction %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
