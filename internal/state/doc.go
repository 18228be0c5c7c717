// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package state defines where the subscription returned by a Module Startup is kept until the
// matching Shutdown, so the two phases can run in different processes.
package state
