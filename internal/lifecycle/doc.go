// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package lifecycle defines the contract between the host runtime and a webhook trigger module.
// The host calls Startup once, Execute for every delivery and Shutdown once, handing back to
// Shutdown the State returned by Startup.
package lifecycle
