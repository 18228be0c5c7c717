// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package sink defines the records produced by webhook deliveries and the Emitter contract
// implemented by every place those records can be shipped to.
package sink
