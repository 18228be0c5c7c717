// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package host drives a lifecycle.Module through its phases: it persists the subscription
// returned by Startup, routes webhook deliveries to Execute and calls Shutdown with the
// persisted state.
package host
