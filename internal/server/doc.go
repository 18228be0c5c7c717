// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server exposes the webhook endpoint called by Mandrill using the Fiber framework.
// It answers the HEAD probe sent when the webhook is added, turns every POST delivery into a
// lifecycle.Message and serves the health and readiness routes.
package server
