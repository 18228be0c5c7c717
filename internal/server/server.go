// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/mandrill-webhook/internal/info"
	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
)

const (
	loggerName = "mandrill-webhook:server"
)

// Handler processes a single webhook delivery. Returning an error wrapping ErrForbidden answers
// with 403, any other error with 500.
type Handler func(ctx context.Context, message lifecycle.Message) error

type Server interface {
	// AddWebhook mounts handler on the configured webhook path.
	AddWebhook(handler Handler)
	// SetReady toggles the readiness route.
	SetReady(ready bool)
	Start() error
	Stop() error
	// StartAsync binds the listener and serves requests in background. A bind failure is
	// returned right away, the channel receives the error that ended serving.
	StartAsync(ctx context.Context) (<-chan error, error)
}

type impServer struct {
	config

	app   *fiber.App
	ready *atomic.Bool
}

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")
	// ErrServerStopped is sent by StartAsync when serving ends without error.
	ErrServerStopped = errors.New("server stopped")

	// ErrForbidden marks a delivery refused because it cannot be authenticated.
	ErrForbidden = errors.New("forbidden")
)

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func NewServer(ctx context.Context) (Server, error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return newServer(ctx, cfg), nil
}

func newServer(ctx context.Context, cfg *config) *impServer {
	app := fiber.New(fiber.Config{
		AppName:               info.AppName,
		DisableStartupMessage: cfg.DisableStartupMessage,
		Immutable:             true,
	})
	log := logger.FromContext(ctx)
	app.Use(logger.RequestMiddlewareLogger(log, []string{statusRoutesPrefix}))

	ready := new(atomic.Bool)
	statusRoutes(app, info.AppName, info.Version, ready)

	return &impServer{
		app:    app,
		config: *cfg,
		ready:  ready,
	}
}

func (s *impServer) AddWebhook(handler Handler) {
	s.app.Head(s.WebhookPath, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	s.app.Post(s.WebhookPath, func(c *fiber.Ctx) error {
		message, err := newMessage(c)
		switch {
		case errors.Is(err, errUnsupportedContentType):
			return sendError(c, http.StatusUnsupportedMediaType, err.Error())
		case err != nil:
			return sendError(c, http.StatusBadRequest, err.Error())
		}

		if err := handler(c.UserContext(), message); err != nil {
			logger.FromContext(c.UserContext()).WithName(loggerName).Error("webhook delivery failed", "error", err.Error())
			if errors.Is(err, ErrForbidden) {
				return sendError(c, http.StatusForbidden, "webhook delivery not authorized")
			}
			return sendError(c, http.StatusInternalServerError, "error processing webhook message")
		}
		return c.SendStatus(http.StatusOK)
	})
}

func sendError(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(errorResponse{
		StatusCode: statusCode,
		Error:      http.StatusText(statusCode),
		Message:    message,
	})
}

func (s *impServer) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *impServer) Start() error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	return s.serve(listener)
}

func (s *impServer) listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.HTTPHost, strconv.Itoa(s.HTTPPort)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return listener, nil
}

func (s *impServer) serve(listener net.Listener) error {
	if err := s.app.Listener(listener); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

func (s *impServer) Stop() error {
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}

func (s *impServer) StartAsync(ctx context.Context) (<-chan error, error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	listener, err := s.listen()
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		log.Info("server listening", "host", s.HTTPHost, "port", s.HTTPPort, "webhookPath", s.WebhookPath)
		err := s.serve(listener)
		if err != nil {
			log.Error(err.Error())
		} else {
			err = ErrServerStopped
		}
		done <- err
	}()
	return done, nil
}
