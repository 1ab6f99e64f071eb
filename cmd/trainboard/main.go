package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hitoshi/trainboard/internal/app"
)

func main() {
	err := app.Run(context.Background(), os.Args[1:], app.Options{})
	if err == nil {
		return
	}
	if !errors.Is(err, app.ErrReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
