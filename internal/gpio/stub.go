//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/horn-controller/internal/logic"
)

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(p Pins) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (b *RealBoard) Read() (Sample, error) {
	return Sample{}, errors.New("gpio: not supported")
}

func (b *RealBoard) SetHorn(on bool) {}
func (b *RealBoard) SetIndicator(id logic.Indicator, on bool) {}
func (b *RealBoard) SetThreshold(level logic.Threshold) {}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
