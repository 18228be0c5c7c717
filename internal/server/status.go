// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"net/http"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

const (
	statusRoutesPrefix = "/-/"

	healthzPath = statusRoutesPrefix + "healthz"
	readyPath   = statusRoutesPrefix + "ready"
)

type statusResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// statusRoutes mounts the liveness and readiness routes. Readiness follows the ready flag.
func statusRoutes(app *fiber.App, serviceName, version string, ready *atomic.Bool) {
	app.Get(healthzPath, func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(statusResponse{Status: "OK", Name: serviceName, Version: version})
	})

	app.Get(readyPath, func(c *fiber.Ctx) error {
		if !ready.Load() {
			return c.Status(http.StatusServiceUnavailable).JSON(statusResponse{Status: "KO", Name: serviceName, Version: version})
		}
		return c.Status(http.StatusOK).JSON(statusResponse{Status: "OK", Name: serviceName, Version: version})
	})
}
