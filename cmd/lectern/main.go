// Command lectern records a speech rehearsal, transcribes it live and
// scores the delivery when the rehearsal ends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/lectern/internal/app"
)

func main() {
	// SIGINT/SIGTERM stop an owner session the same way `lectern stop` does.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
