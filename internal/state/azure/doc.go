// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azure implements a state.Store keeping the subscription in an Azure Storage blob, so
// register and unregister can run on different machines.
package azure
