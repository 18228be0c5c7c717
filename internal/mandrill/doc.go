// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package mandrill implements the webhook trigger for the Mandrill email events API.
//
// The Registrar adds a webhook pointing at the flow callback URL on activation and removes it
// on deactivation. The EventTranslator splits the mandrill_events form field of every
// delivery into one sink.Record per provider event, preserving their order.
package mandrill
