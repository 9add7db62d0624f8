//go:build !linux

package usb

import "context"

// NewPlatform returns a Platform that reports ErrUnsupported
func NewPlatform() Platform {
	return unsupportedPlatform{}
}

type unsupportedPlatform struct{}

func (unsupportedPlatform) Subscribe(context.Context) (<-chan Event, error) {
	return nil, ErrUnsupported
}

func (unsupportedPlatform) Devices() (Iterator, error) {
	return nil, ErrUnsupported
}
