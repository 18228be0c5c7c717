// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package writer implements a sink.Emitter printing records on an io.Writer, it is used for
// local runs and payload replays.
package writer
