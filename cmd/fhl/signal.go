package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler returns a channel that is closed when SIGINT or SIGTERM
// is received. A second signal exits immediately.
func setupSignalHandler() <-chan struct{} {
	shutdown := make(chan struct{})
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal: %v\n", sig)
		fmt.Fprintf(os.Stderr, "Initiating graceful shutdown...\n")
		close(shutdown)

		<-sigChan
		os.Exit(exitInterrupted)
	}()

	return shutdown
}
