package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "baas",
		Usage: "Client for a hosted Postgres backend: auth, data, storage and realtime",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (BAAS_* variables override it)",
				EnvVars: []string{"BAAS_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			healthCommand(),
			signUpCommand(),
			signInCommand(),
			signInOAuthCommand(),
			signOutCommand(),
			sessionCommand(),
			userCommand(),
			resetPasswordCommand(),
			selectCommand(),
			insertCommand(),
			updateCommand(),
			deleteCommand(),
			rpcCommand(),
			uploadCommand(),
			publicURLCommand(),
			removeCommand(),
			subscribeCommand(),
			getCommand(),
		},
	}
}
