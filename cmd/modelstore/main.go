/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

// Command modelstore provisions DynamoDB tables from a declarative manifest.
//
// Usage:
//
//	modelstore -manifest tables.yaml create-all
//	modelstore -manifest tables.yaml -namespace test_ recreate-all
//	modelstore -manifest tables.yaml drop-all
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quayside/modelstore"
	"github.com/quayside/modelstore/config"
)

func main() {
	var (
		showVersion  bool
		configPath   string
		manifestPath string
		namespace    string
		force        bool
		verbose      bool
	)
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&configPath, "config", "", "path to a YAML config file (default: environment)")
	flag.StringVar(&manifestPath, "manifest", "", "path to the table manifest (required)")
	flag.StringVar(&namespace, "namespace", "", "table-name prefix override")
	flag.BoolVar(&force, "force", false, "allow recreate-all outside a test namespace")
	flag.BoolVar(&verbose, "v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		info := modelstore.GetVersionInfo()
		fmt.Printf("modelstore %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildDate)
		return
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}
	if manifestPath == "" {
		logger.Fatal().Msg("-manifest is required")
	}

	cfg := config.FromEnv()
	if configPath != "" {
		fileCfg, err := config.FromFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
		cfg = fileCfg
	}

	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load manifest")
	}

	prefix := cfg.Prefix()
	if manifest.Namespace != "" {
		prefix = manifest.Namespace
	}
	if namespace != "" {
		prefix = namespace
	}

	bindings, err := manifest.Bindings(prefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve manifest bindings")
	}

	ctx := context.Background()
	client, err := config.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build client")
	}

	sess := modelstore.NewSession(client,
		modelstore.WithNamespace(prefix),
		modelstore.WithSessionLogger(logger),
	)
	for _, binding := range bindings {
		if err := sess.RegisterBinding(binding); err != nil {
			logger.Fatal().Err(err).Str("table", binding.Table).Msg("register binding")
		}
	}

	switch command {
	case "create-all":
		err = sess.CreateAll(ctx)
	case "recreate-all":
		if !strings.HasPrefix(prefix, modelstore.TestNamespace) && !force {
			logger.Fatal().Str("namespace", prefix).
				Msg("recreate-all deletes all data; outside a test namespace it requires -force")
		}
		err = sess.RecreateAll(ctx)
	case "drop-all":
		err = sess.DropAll(ctx)
	default:
		logger.Fatal().Str("command", command).Msg("unknown command")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("provisioning failed")
	}
	logger.Info().Str("command", command).Int("tables", len(bindings)).Msg("done")
}

func usage() {
	fmt.Fprintf(os.Stderr, `modelstore manages the DynamoDB tables declared in a manifest.

Usage:
  modelstore [flags] <command>

Commands:
  create-all    create every declared table that does not exist
  recreate-all  drop and re-create every declared table (destructive)
  drop-all      delete every declared table

Flags:
`)
	flag.PrintDefaults()
}
