// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeaderName    = "x-request-id"
	requestIDLocalsKey     = "requestId"
	forwardedForHeaderName = "x-forwarded-for"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

type httpRequest struct {
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	IP        string `json:"ip,omitempty"`
}

type httpResponse struct {
	StatusCode int `json:"statusCode,omitempty"`
	Bytes      int `json:"bytes"`
}

// RequestID returns the request id sent by the caller or a freshly generated one. The id is
// stored in the request locals so every call for the same request returns the same value.
func RequestID(c *fiber.Ctx) string {
	if requestID, ok := c.Locals(requestIDLocalsKey).(string); ok {
		return requestID
	}

	requestID := c.Get(requestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Locals(requestIDLocalsKey, requestID)
	return requestID
}

func requestInfo(c *fiber.Ctx) httpRequest {
	ip := c.Get(forwardedForHeaderName)
	if ip == "" {
		ip = c.IP()
	}

	return httpRequest{
		Method:    c.Method(),
		Path:      c.Path(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        ip,
	}
}

func responseInfo(c *fiber.Ctx, handlerErr error) httpResponse {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return httpResponse{StatusCode: fiberErr.Code, Bytes: len(fiberErr.Message)}
	}

	return httpResponse{
		StatusCode: c.Response().StatusCode(),
		Bytes:      len(c.Response().Body()),
	}
}

// RequestMiddlewareLogger logs every request not matching one of excludedPrefixes and stores a
// request scoped logger inside the user context of the request.
func RequestMiddlewareLogger(log Logger, excludedPrefixes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range excludedPrefixes {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		requestLog := log.WithName("request").With("requestId", RequestID(c))
		c.SetUserContext(WithContext(c.UserContext(), requestLog))

		requestLog.Trace(IncomingRequestMessage, "http", requestInfo(c))
		err := c.Next()
		requestLog.Info(RequestCompletedMessage,
			"http", requestInfo(c),
			"response", responseInfo(c, err),
			"responseTime", float64(time.Since(start).Milliseconds()),
		)

		return err
	}
}
