// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package racesim

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is the cause of every error reported while
	// building a circuit or a tree: bad depth or resolution, out of range node
	// specs, negative constants, wrong label counts, etc.
	//
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAmbiguousDecode is returned when more than one position of a one-hot
	// vector is active in the same cycle.
	//
	ErrAmbiguousDecode = errors.New("ambiguous decode")
)

// ConfigError returns an error with cause ErrInvalidConfiguration and the given
// formatted message.
//
func ConfigError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

// IsConfigError returns true if the cause of err is ErrInvalidConfiguration.
//
func IsConfigError(err error) bool {
	return err != nil && errors.Cause(err) == ErrInvalidConfiguration
}
