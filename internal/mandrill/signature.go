// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the signature algorithm is dictated by the provider
	"encoding/base64"
	"maps"
	"slices"
)

// SignatureHeader is the header carrying the delivery signature.
const SignatureHeader = "X-Mandrill-Signature"

// Sign computes the signature of a delivery: the base64 HMAC-SHA1, keyed with the webhook
// auth key, of the webhook url followed by every POST parameter name and value sorted by name.
func Sign(authKey, webhookURL string, params map[string]string) string {
	mac := hmac.New(sha1.New, []byte(authKey))
	mac.Write([]byte(webhookURL))
	for _, name := range slices.Sorted(maps.Keys(params)) {
		mac.Write([]byte(name))
		mac.Write([]byte(params[name]))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the one computed for params.
func VerifySignature(authKey, webhookURL string, params map[string]string, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	computed, _ := base64.StdEncoding.DecodeString(Sign(authKey, webhookURL, params))
	return hmac.Equal(computed, expected)
}
