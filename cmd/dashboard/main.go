// Package main starts the guildboard dashboard state host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/guildboard/internal/cmd/dashboard"
)

func main() {
	cfg, err := dashboard.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dashboard.Run(ctx, cfg); err != nil {
		stop()
		exitf("Error: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
