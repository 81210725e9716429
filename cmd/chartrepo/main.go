package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ralt/chartrepo/internal/cli"
	"github.com/sirupsen/logrus"
)

func main() {
	// Setup logging format
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Interrupts cancel the running subprocess; working directories are still removed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, cli.NewRootCmd())
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
