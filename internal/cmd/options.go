// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mia-platform/mandrill-webhook/internal/config"
	"github.com/mia-platform/mandrill-webhook/internal/host"
	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/server"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

// options holds everything needed to run one of the commands.
type options struct {
	configFile     string
	sinkName       string
	stateStoreName string
	inputPath      string
	withStateStore bool

	environment lifecycle.Environment
	in          io.Reader
	out         io.Writer

	moduleGetter  func() lifecycle.Module
	emitterGetter func(ctx context.Context, name string, out io.Writer) (sink.Emitter, error)
	storeGetter   func(name string) (state.Store, error)
	serverGetter  func(ctx context.Context) (server.Server, error)

	lock sync.Mutex
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if _, ok := availableSinks[o.sinkName]; !ok {
		return fmt.Errorf("%w: %s", errInvalidSink, o.sinkName)
	}

	if _, ok := availableStateStores[o.stateStoreName]; o.withStateStore && !ok {
		return fmt.Errorf("%w: %s", errInvalidStateStore, o.stateStoreName)
	}

	return nil
}

// executeRun serves webhook deliveries until SIGINT or SIGTERM is received.
func (o *options) executeRun(ctx context.Context) (err error) {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	runner, err := o.runner()
	if err != nil {
		return err
	}

	emitter, err := o.emitterGetter(ctx, o.sinkName, o.out)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeEmitter(context.WithoutCancel(ctx), emitter)) }()

	srv, err := o.serverGetter(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx, srv, emitter)
}

// executeRegister adds the webhook and prints its id.
func (o *options) executeRegister(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	runner, err := o.runner()
	if err != nil {
		return err
	}

	registered, err := runner.Register(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(o.out, registered.ID)
	return nil
}

// executeUnregister removes the webhook saved in the state store.
func (o *options) executeUnregister(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	runner, err := o.runner()
	if err != nil {
		return err
	}

	return runner.Unregister(ctx)
}

// executeTranslate sends the events of a single saved delivery to the sink.
func (o *options) executeTranslate(ctx context.Context) (err error) {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	input, err := openInput(o.inputPath, o.in)
	if err != nil {
		return err
	}
	defer input.Close()

	message, err := readMessage(input)
	if err != nil {
		return err
	}

	runner, err := o.runner()
	if err != nil {
		return err
	}

	emitter, err := o.emitterGetter(ctx, o.sinkName, o.out)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeEmitter(context.WithoutCancel(ctx), emitter)) }()

	return runner.Replay(ctx, message, emitter)
}

// runner assembles the host runner from the configuration file, the state store and the module.
func (o *options) runner() (*host.Runner, error) {
	configuration, err := config.Load(o.configFile, o.environment)
	if err != nil {
		return nil, err
	}

	var store state.Store
	if o.withStateStore {
		store, err = o.storeGetter(o.stateStoreName)
		if err != nil {
			return nil, err
		}
	}

	return host.New(o.moduleGetter(), store, configuration, o.environment)
}
