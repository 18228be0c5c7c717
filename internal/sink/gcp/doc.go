// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package gcp implements a sink.Emitter publishing every record to a Google Cloud Pub/Sub topic.
package gcp
