package database

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context canceled on SIGTERM or SIGINT. A
// running reconciliation observes the cancellation, stops reading and
// reports its partial counters as incomplete.
func SetupSignalHandler() context.Context {
	return SetupSignalHandlerWithCallback(nil)
}

// SetupSignalHandlerWithCallback is SetupSignalHandler with a callback that
// runs before the context is canceled.
func SetupSignalHandlerWithCallback(callback func(os.Signal)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			if callback != nil {
				callback(sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}
