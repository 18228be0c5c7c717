// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps hclog behind a small interface and carries loggers inside contexts.
// It also provides the fiber middleware that logs webhook deliveries.
package logger
