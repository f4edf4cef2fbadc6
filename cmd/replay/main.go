// Command replay feeds a script of submissions through a disclosure engine
// and prints one JSON line per command. It is meant for exercising summarizer
// and token counter settings offline.
//
// Script syntax, one command per line, shell quoting allowed:
//
//	submit <context> <doc> <content>
//	submit-file <context> <doc> <path>
//	lookup <context> <doc>
//	stats <context>
//	drop <context>
//
// Blank lines and lines starting with # are skipped.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"disclosure-api/internal/app"
	"disclosure-api/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "config file; defaults are used when empty and none is found")
	scriptPath := flags.StringP("script", "s", "-", "script file, - for stdin")
	keepGoing := flags.Bool("keep-going", false, "continue after a failing command")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	}
	a, err := app.Build(cfg, app.Options{NoJournal: true})
	if err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	}
	defer a.Close()

	in := stdin
	if *scriptPath != "-" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintf(stderr, "replay: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	r := &runner{engine: a.Engine, out: stdout, keepGoing: *keepGoing}
	if err := r.run(in); err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig falls back to defaults when no path is given and no config file
// is found.
func loadConfig(path string) (*config.Config, error) {
	cfg, _, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path != "" || os.Getenv(config.EnvPath) != "" {
		return nil, err
	}
	cfg = &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, nil
}
