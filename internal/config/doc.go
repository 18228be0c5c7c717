// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config loads the Configuration handed to the lifecycle phases from a YAML file and
// from the process environment.
package config
