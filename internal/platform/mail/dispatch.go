// Copyright (c) 2026 JadeWellness. All rights reserved.

package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DispatchTimeout bounds a single background send.
const DispatchTimeout = 30 * time.Second

// Dispatcher sends mail without blocking the request that triggered it.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher wraps sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch sends message in the background. The request context is not used:
// the send must outlive the response. Failures are logged as email_dispatch_failed.
func (dispatcher *Dispatcher) Dispatch(message Message) {
	dispatcher.wg.Add(1)
	go func() {
		defer dispatcher.wg.Done()

		context, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
		defer cancel()

		if err := dispatcher.sender.Send(context, message); err != nil {
			dispatcher.logger.Warn("email_dispatch_failed",
				slog.String("subject", message.Subject),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until all in-flight sends finish. Called on shutdown and by tests.
func (dispatcher *Dispatcher) Wait() {
	dispatcher.wg.Wait()
}
