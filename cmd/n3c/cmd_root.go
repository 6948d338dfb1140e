// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HoKim98/n3/internal/n3log"
)

var (
	rootDirFlag string
	logLevel    string
	logJSON     bool
	logger      *n3log.Logger
	cfg         = viper.New()

	rootCmd = &cobra.Command{
		Use:   "n3c",
		Short: "Compile and inspect n3 neural network description programs",
		Long: `n3c resolves, builds, and lowers n3 node descriptions into runnable
programs: it owns the node cache, the resolver scope stack, and exec
lowering, but delegates surface-syntax parsing and node-source discovery
to whatever implementation is linked in.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.SetEnvPrefix("N3")
			cfg.AutomaticEnv()
			if rootDirFlag == "" {
				rootDirFlag = cfg.GetString("root")
			}
			logger = n3log.New(n3log.Config{
				Level:   parseLogLevel(logLevel),
				Service: "n3c",
				JSON:    logJSON,
			})
			return nil
		},
	}
)

func parseLogLevel(s string) n3log.Level {
	switch s {
	case "debug":
		return n3log.LevelDebug
	case "warn":
		return n3log.LevelWarn
	case "error":
		return n3log.LevelError
	default:
		return n3log.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", "", "n3 root directory (defaults to $N3_ROOT, then $HOME)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
}
