// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package host

import "errors"

var (
	// ErrAlreadyRegistered is returned by Register when a subscription is already persisted.
	ErrAlreadyRegistered = errors.New("a webhook is already registered")
	// ErrNotRegistered is returned by Unregister when no subscription is persisted.
	ErrNotRegistered = errors.New("no webhook registered")
	// ErrStateStore wraps the failures of the state store.
	ErrStateStore = errors.New("state store error")
	// ErrConfiguration reports an invalid host setup.
	ErrConfiguration = errors.New("invalid host configuration")
)

// unsupportedModuleError signals that the module does not implement an optional capability.
type unsupportedModuleError struct {
	Message string
}

func (e *unsupportedModuleError) Error() string {
	return e.Message
}

func (e *unsupportedModuleError) Unwrap() error {
	return errors.ErrUnsupported
}
