package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
)

// run drives the fx application lifecycle: start, block until a shutdown
// signal or an internal stop, then stop with a fresh context so teardown
// is not cut short by the cancelled signal context.
func run(ctx context.Context, app *fx.App) {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ordercore start: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ordercore stop: %v\n", err)
		os.Exit(1)
	}
}
