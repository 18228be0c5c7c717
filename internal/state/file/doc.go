// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package file implements a state.Store keeping the subscription in a YAML file on disk.
package file
