package lib

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// SignalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal terminates the process immediately.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigC := make(chan os.Signal, 2)
	signal.Notify(sigC,
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	go func() {
		defer signal.Stop(sigC)
		select {
		case sig := <-sigC:
			log.Infof("Received %s, cancelling...", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigC:
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}
