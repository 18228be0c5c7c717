// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package forward implements a sink.Emitter that POSTs every record as JSON to an HTTP endpoint,
// authenticating with a static token, an OAuth2 client credentials flow or a JWT bearer grant.
package forward
