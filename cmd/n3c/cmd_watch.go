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
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/HoKim98/n3/internal/execvars"
	"github.com/HoKim98/n3/internal/n3root"
)

var watchCmd = &cobra.Command{
	Use:   "watch <exec-name>",
	Short: "Recompile an exec node whenever its root directory's nodes change",
	Long: `Watches the root directory's nodes tree and rebuilds exec-name on every
file create, write, rename, or removal under it, logging build success or failure.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	name := args[0]

	dir := rootDirFlag
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve root directory: %w", err)
		}
		dir = home
	}
	nodesDir := filepath.Join(dir, n3root.NodesDir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, nodesDir); err != nil {
		return fmt.Errorf("watch %s: %w", nodesDir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := func() {
		root, err := openRoot()
		if err != nil {
			logger.Error("open root failed", "error", err)
			return
		}
		defer root.Close()

		built, err := root.ResolveNode(name)
		if err != nil {
			logger.Error("resolve failed", "exec", name, "error", err)
			return
		}
		vars, err := execvars.Load(queriesFor(built, nil))
		if err != nil {
			logger.Error("load variables failed", "error", err)
			return
		}
		if _, err := root.Get(name, vars); err != nil {
			logger.Error("rebuild failed", "exec", name, "error", err)
			return
		}
		logger.Info("rebuilt", "exec", name)
	}

	logger.Info("watching", "dir", nodesDir, "exec", name)
	rebuild()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			logger.Info("stopping watch")
			return nil
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
