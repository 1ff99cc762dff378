package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/denizgursoy/cukexml/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := app.StartApplication(ctx, os.Args[1:], app.StandardStreams())
	if err != nil {
		if !errors.Is(err, app.ErrFailures) {
			fmt.Fprintln(os.Stderr, "cukexml:", err)
		}
		stop()
		os.Exit(1)
	}
}
