// Command streambot runs the stream bot: web callback server, song-request
// player and Twitch chat bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/streambot/app"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("streambot", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "config.toml", "configuration file")
	showVersion := flags.BoolP("version", "V", false, "print the version and exit")
	noLogFile := flags.Bool("no-log-file", false, "do not write streambot.log next to the configuration")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	info := version.Get()
	if *showVersion {
		fmt.Println("streambot", info.String())
		return 0
	}

	cfg, err := app.Load(*configPath)
	if err != nil {
		return fail(err)
	}
	if cfg.Version == "" {
		cfg.Version = info.Short()
	}
	if !*noLogFile && cfg.Logging.File == "" {
		cfg.Logging.File = cfg.LogFile()
	}

	if err := app.Run(context.Background(), cfg); err != nil {
		return fail(err)
	}
	return 0
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, "streambot:", err)
	return errors.ExitCode(err)
}
