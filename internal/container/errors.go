package container

import "errors"

var (
	// ErrInvalidImage is returned when pre-flight validation cannot find
	// the requested image in the local daemon.
	ErrInvalidImage = errors.New("specified image is not valid")

	// ErrInvalidNetwork is returned when pre-flight validation cannot find
	// the requested network.
	ErrInvalidNetwork = errors.New("specified network is not valid")
)
