// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azure implements a sink.Emitter sending every record to an Azure Event Hub.
package azure
