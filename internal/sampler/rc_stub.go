//go:build !linux

package sampler

import "errors"

// RCSampler is not available on non-Linux platforms.
type RCSampler struct {
	*queue
}

// NewRCSampler returns an error on non-Linux platforms.
func NewRCSampler(cfg RCConfig) (*RCSampler, error) {
	return nil, errors.New("sampler: rc sampling requires Linux gpio")
}

// Close is not implemented on non-Linux platforms.
func (s *RCSampler) Close() error {
	return nil
}
