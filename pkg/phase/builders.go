package phase

import (
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Paired builds the two-phase plan used for opposing pairs:
//
//	[0, greenFirst)                                          first green
//	[greenFirst+clearance, greenFirst+clearance+greenSecond)  second green
//
// with a clearance after each green.
func Paired(first []traffic.Direction, greenFirst float64, second []traffic.Direction, greenSecond float64, clearance, cycle float64) (*Schedule, error) {
	if clearance < 0 {
		return nil, traffic.NewInvalidConfigError("clearance", "must not be negative, got %v", clearance)
	}
	entries := []Entry{{Green: first, Duration: greenFirst}}
	entries = appendClearance(entries, clearance)
	entries = append(entries, Entry{Green: second, Duration: greenSecond})
	entries = appendClearance(entries, clearance)
	return New(entries, cycle)
}

// Green pairs a direction with its green duration.
type Green struct {
	Direction traffic.Direction
	Duration  float64
}

// Independent builds a plan that serves one direction at a time in the given
// order, each green followed by a clearance.
func Independent(greens []Green, clearance, cycle float64) (*Schedule, error) {
	if clearance < 0 {
		return nil, traffic.NewInvalidConfigError("clearance", "must not be negative, got %v", clearance)
	}
	entries := make([]Entry, 0, 2*len(greens))
	for _, g := range greens {
		entries = append(entries, Entry{Green: []traffic.Direction{g.Direction}, Duration: g.Duration})
		entries = appendClearance(entries, clearance)
	}
	return New(entries, cycle)
}

// zero-length clearances are dropped so New does not reject them
func appendClearance(entries []Entry, clearance float64) []Entry {
	if clearance == 0 {
		return entries
	}
	return append(entries, Entry{Duration: clearance})
}
