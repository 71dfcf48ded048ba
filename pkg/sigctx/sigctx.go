// Package sigctx derives the root context the catalog and ledger
// binaries run under. The context closes on the usual termination
// signals, which drives the graceful HTTP server and DB shutdown.
package sigctx

import (
	"context"
	"os/signal"
	"syscall"
)

func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
}
