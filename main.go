package main

import (
	"clementus360/agent-client/commands"
	"clementus360/agent-client/config"
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {

	config.LoadEnv()
	config.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.Execute(ctx)
	stop()
	if err != nil {
		config.Logger.Error(err)
		os.Exit(1)
	}
}
