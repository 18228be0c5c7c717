// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/server"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

const (
	loggerName = "mandrill-webhook:host"
)

type config struct {
	VerifySignature bool `env:"MANDRILL_VERIFY_SIGNATURE" envDefault:"false"`
}

// Runner owns the lifecycle of a single Module. Register and Unregister never run concurrently.
type Runner struct {
	module        lifecycle.Module
	store         state.Store
	configuration lifecycle.Configuration
	environment   lifecycle.Environment

	verifySignature bool

	phaseLock sync.Mutex
	current   atomic.Pointer[lifecycle.State]
}

// New returns a Runner for module. Host settings are read from environment.
func New(module lifecycle.Module, store state.Store, configuration lifecycle.Configuration, environment lifecycle.Environment) (*Runner, error) {
	cfg, err := env.ParseAsWithOptions[config](env.Options{Environment: environment})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if _, ok := module.(lifecycle.Authenticator); cfg.VerifySignature && !ok {
		return nil, &unsupportedModuleError{Message: "module does not support signature verification"}
	}

	return &Runner{
		module:          module,
		store:           store,
		configuration:   configuration,
		environment:     environment,
		verifySignature: cfg.VerifySignature,
	}, nil
}

// Register runs the module Startup and persists the returned state. It refuses to run when a
// state is already persisted, to avoid leaving an untracked subscription behind.
func (r *Runner) Register(ctx context.Context) (lifecycle.State, error) {
	r.phaseLock.Lock()
	defer r.phaseLock.Unlock()

	_, err := r.store.Load(ctx)
	switch {
	case err == nil:
		return lifecycle.State{}, ErrAlreadyRegistered
	case !errors.Is(err, state.ErrNotFound):
		return lifecycle.State{}, fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	return r.register(ctx)
}

func (r *Runner) register(ctx context.Context) (lifecycle.State, error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	log.Debug("registering webhook")
	registered, err := r.module.Startup(ctx, r.configuration, r.environment)
	if err != nil {
		return lifecycle.State{}, err
	}

	if err := r.store.Save(ctx, registered); err != nil {
		log.Error("webhook registered but its state cannot be saved, remove it manually", "webhookId", registered.ID, "error", err.Error())
		return registered, fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	r.current.Store(&registered)
	log.Info("webhook registered", "webhookId", registered.ID)
	return registered, nil
}

// Unregister loads the persisted state, runs the module Shutdown and drops the state. The
// state is kept when Shutdown fails.
func (r *Runner) Unregister(ctx context.Context) error {
	r.phaseLock.Lock()
	defer r.phaseLock.Unlock()

	return r.unregister(ctx)
}

func (r *Runner) unregister(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	persisted, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotRegistered, err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	log.Debug("removing webhook", "webhookId", persisted.ID)
	if err := r.module.Shutdown(ctx, r.configuration, r.environment, persisted); err != nil {
		return err
	}

	r.current.Store(nil)
	if err := r.store.Delete(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	log.Info("webhook removed", "webhookId", persisted.ID)
	return nil
}

// Run starts srv, registers the webhook and routes every delivery to the module until ctx is
// cancelled or srv stops serving. Then it stops srv and removes the webhook. No webhook is
// registered when srv cannot listen. A subscription left behind by a previous run is removed
// before registering.
func (r *Runner) Run(ctx context.Context, srv server.Server, emitter sink.Emitter) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	srv.AddWebhook(r.deliveryHandler(emitter))
	serveDone, err := srv.StartAsync(ctx)
	if err != nil {
		return err
	}

	if err := r.start(ctx); err != nil {
		return errors.Join(err, srv.Stop())
	}

	srv.SetReady(true)
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down", "reason", context.Cause(ctx).Error())
	case serveErr = <-serveDone:
		log.Error("server is not serving anymore, removing webhook", "error", serveErr.Error())
	}

	srv.SetReady(false)
	stopErr := srv.Stop()
	return errors.Join(serveErr, stopErr, r.Unregister(context.WithoutCancel(ctx)))
}

func (r *Runner) start(ctx context.Context) error {
	r.phaseLock.Lock()
	defer r.phaseLock.Unlock()

	stale, err := r.store.Load(ctx)
	switch {
	case err == nil:
		log := logger.FromContext(ctx).WithName(loggerName)
		log.Warn("removing webhook left by a previous run", "webhookId", stale.ID)
		err := r.unregister(ctx)
		switch {
		case errors.Is(err, lifecycle.ErrSubscriptionNotFound):
			log.Warn("webhook left by a previous run no longer exists, dropping its state", "webhookId", stale.ID)
			if err := r.store.Delete(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrStateStore, err)
			}
		case err != nil:
			return err
		}
	case !errors.Is(err, state.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	_, err = r.register(ctx)
	return err
}

// Replay runs the module Execute once for message, without any registration.
func (r *Runner) Replay(ctx context.Context, message lifecycle.Message, emitter sink.Emitter) error {
	return r.module.Execute(ctx, message, emitter)
}

func (r *Runner) deliveryHandler(emitter sink.Emitter) server.Handler {
	return func(ctx context.Context, message lifecycle.Message) error {
		if r.verifySignature {
			if err := r.authenticate(ctx, message); err != nil {
				return fmt.Errorf("%w: %w", server.ErrForbidden, err)
			}
		}

		return r.module.Execute(ctx, message, emitter)
	}
}

func (r *Runner) authenticate(ctx context.Context, message lifecycle.Message) error {
	current := r.current.Load()
	if current == nil {
		return ErrNotRegistered
	}

	authenticator, ok := r.module.(lifecycle.Authenticator)
	if !ok {
		return &unsupportedModuleError{Message: "module does not support signature verification"}
	}
	return authenticator.Authenticate(ctx, *current, message)
}
