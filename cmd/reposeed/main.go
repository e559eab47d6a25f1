package main

import (
	"fmt"
	"log/slog"
	"os"
)

func main() {
	// stdout carries only the numbered operator transcript; structured
	// logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
