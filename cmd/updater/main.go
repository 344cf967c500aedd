// Command updater extracts a program's course catalog from its published
// page, reconciles it against a reference catalog and reports every
// difference.
//
// Exit status is 0 when the catalogs agree, 1 when differences were found
// and 2 on any hard failure.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
