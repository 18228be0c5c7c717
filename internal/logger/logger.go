// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// nullLogger discards everything, it is returned when no logger is found in a context.
var nullLogger Logger = &instance{log: hclog.NewNullLogger()}

// Level is the verbosity of a Logger.
type Level int

const (
	ERROR Level = iota
	WARN
	INFO
	DEBUG
	TRACE
)

var levelNames = map[Level]string{
	ERROR: "ERROR",
	WARN:  "WARN",
	INFO:  "INFO",
	DEBUG: "DEBUG",
	TRACE: "TRACE",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

// LevelFromString parses a level name case insensitively, unknown values fall back to INFO.
func LevelFromString(level string) Level {
	upper := strings.ToUpper(strings.TrimSpace(level))
	for l, name := range levelNames {
		if name == upper {
			return l
		}
	}
	return INFO
}

func (l Level) hclogLevel() hclog.Level {
	switch l {
	case TRACE:
		return hclog.Trace
	case DEBUG:
		return hclog.Debug
	case WARN:
		return hclog.Warn
	case ERROR:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Logger is the logging surface used across the application.
type Logger interface {
	// WithName returns a Logger that reports the given name.
	WithName(name string) Logger
	// With returns a Logger that always adds the given key/value pairs.
	With(args ...any) Logger
	// SetLevel changes the minimum level emitted by the logger and all the loggers derived from it.
	SetLevel(level Level)

	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Logger = &instance{}

type instance struct {
	log hclog.Logger
}

// NewLogger returns a JSON logger writing on writer at INFO level.
func NewLogger(writer io.Writer) Logger {
	return &instance{
		log: hclog.New(&hclog.LoggerOptions{
			JSONFormat: true,
			Output:     writer,
			TimeFn:     time.Now,
			Level:      INFO.hclogLevel(),
		}),
	}
}

func (i *instance) WithName(name string) Logger {
	return &instance{log: i.log.ResetNamed(name)}
}

func (i *instance) With(args ...any) Logger {
	return &instance{log: i.log.With(args...)}
}

func (i *instance) SetLevel(level Level) {
	i.log.SetLevel(level.hclogLevel())
}

func (i *instance) Trace(msg string, args ...any) { i.log.Trace(msg, args...) }
func (i *instance) Debug(msg string, args ...any) { i.log.Debug(msg, args...) }
func (i *instance) Info(msg string, args ...any)  { i.log.Info(msg, args...) }
func (i *instance) Warn(msg string, args ...any)  { i.log.Warn(msg, args...) }
func (i *instance) Error(msg string, args ...any) { i.log.Error(msg, args...) }
