// Command greencred runs the eco-action token ledger.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/greencred/greencred/internal/cli"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		slog.Warn("set GOMAXPROCS", "error", err)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
