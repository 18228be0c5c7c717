// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
)

var (
	errUnsupportedContentType = errors.New("unsupported content type")
	errMalformedBody          = errors.New("malformed request body")
)

// newMessage converts the current request into a lifecycle.Message. Form fields are stored as
// strings, JSON bodies must be objects.
func newMessage(c *fiber.Ctx) (lifecycle.Message, error) {
	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[http.CanonicalHeaderKey(key)] = values[0]
		}
	}

	body, err := decodeBody(c)
	if err != nil {
		return lifecycle.Message{}, err
	}

	return lifecycle.Message{
		ID:      logger.RequestID(c),
		Headers: headers,
		Body:    body,
	}, nil
}

func decodeBody(c *fiber.Ctx) (map[string]any, error) {
	body := make(map[string]any)
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return body, nil
	}

	mediaType, _, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil {
		return nil, errUnsupportedContentType
	}

	switch mediaType {
	case fiber.MIMEApplicationForm:
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			body[string(key)] = string(value)
		})
	case fiber.MIMEMultipartForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, errMalformedBody
		}
		for key, values := range form.Value {
			if len(values) > 0 {
				body[key] = values[0]
			}
		}
	case fiber.MIMEApplicationJSON:
		decoder := json.NewDecoder(bytes.NewReader(c.Body()))
		decoder.UseNumber()
		if err := decoder.Decode(&body); err != nil || body == nil {
			return nil, errMalformedBody
		}
	default:
		return nil, errUnsupportedContentType
	}

	return body, nil
}
