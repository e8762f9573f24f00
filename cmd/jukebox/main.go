package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/jukebox/cmd/jukebox/accounts"
	"github.com/andrebq/jukebox/cmd/jukebox/serve"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "jukebox",
		Usage: "Account and session services for the jukebox player",
		Commands: []*cli.Command{
			serve.Cmd(),
			accounts.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
