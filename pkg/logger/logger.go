/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

const RequestIDKey = "request_id"

var base = logrus.New()

// Init configures the process wide logger
// level is any logrus level name, format is "json" or "text"
func Init(level, format string) {
	InitWithOutput(level, format, os.Stdout)
}

// InitWithOutput is Init with an explicit writer, used by tests
func InitWithOutput(level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	base.SetOutput(out)

	if strings.EqualFold(format, "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
	}
}

// Logger returns the entry stored in ctx, or a fresh entry on the base logger
func Logger(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(base)
}

// WithFields returns a context whose logger carries the given fields
// in addition to the ones already present
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, ctxKey{}, Logger(ctx).WithFields(fields))
}

// WithRequestID attaches the request id to every log line emitted through ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithFields(ctx, logrus.Fields{RequestIDKey: requestID})
}
