// cmd/coredb/main.go
//
// coredb - interactive shell over the in-memory relational engine.
//
// Usage:
//
//	coredb [--config FILE]
//
// Use .help inside the shell for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"coredb/pkg/cli"
	"coredb/pkg/config"
)

type options struct {
	Config  string `short:"c" long:"config" description:"YAML file of engine tunables" value-name:"FILE"`
	Help    bool   `long:"help" description:"Show this help"`
	Version bool   `long:"version" description:"Show this version"`
}

var version = "0.1.0"

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		return
	}
	if opts.Version {
		fmt.Println(version)
		return
	}

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	repl := cli.NewREPL(cfg, os.Stdout, os.Stderr)
	defer repl.Close()
	repl.Run()
}
