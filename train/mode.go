// Package train holds the domain types shared by the reservation client:
// operators, stations, search criteria, departure candidates, and the
// snapshots the worker reports for reservation tasks.
package train

import (
	"errors"

	internalstrings "github.com/amonks/rail/internal/strings"
	"github.com/amonks/rail/internal/validation"
)

// Mode selects the rail operator a search or reservation targets.
type Mode string

const (
	// ModeKTX targets Korail (KTX and other Korail services).
	ModeKTX Mode = "KTX"
	// ModeSRT targets SR (SRT services).
	ModeSRT Mode = "SRT"
)

// ErrInvalidMode indicates a mode outside the supported set.
var ErrInvalidMode = errors.New("invalid mode")

// ValidModes returns all supported modes.
func ValidModes() []Mode {
	return []Mode{ModeKTX, ModeSRT}
}

// IsValid returns true if the mode is a known value.
func (m Mode) IsValid() bool {
	for _, valid := range ValidModes() {
		if m == valid {
			return true
		}
	}
	return false
}

// ParseMode parses a mode case-insensitively.
func ParseMode(value string) (Mode, error) {
	mode := Mode(internalstrings.NormalizeUpperTrimSpace(value))
	if !mode.IsValid() {
		return "", validation.FormatInvalidValueError(ErrInvalidMode, Mode(value), ValidModes())
	}
	return mode, nil
}
