// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package n3root

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/HoKim98/n3/internal/n3err"
)

// Standard subdirectories of a root directory (ExecRoot's own layout):
// node sources under Nodes (with a user-writable subtree), trained model
// checkpoints under Models, run artifacts under Data and Logs.
const (
	DataDir      = "data"
	LogsDir      = "logs"
	ModelsDir    = "models"
	NodesDir     = "nodes"
	NodesUserDir = "user"
)

// EnsureRootDir validates that path exists and is a directory, or creates
// it (plus the standard subdirectory layout) if it does not exist yet.
func EnsureRootDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return &n3err.ExternalError{Kind: n3err.ErrNotDirectory, Op: "n3root.EnsureRootDir", Err: errors.New(path)}
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return &n3err.ExternalError{Kind: n3err.ErrIO, Op: "n3root.EnsureRootDir", Err: err}
	}
	return makeRootDir(path)
}

func makeRootDir(path string) error {
	dirs := []string{
		path,
		filepath.Join(path, DataDir),
		filepath.Join(path, LogsDir),
		filepath.Join(path, ModelsDir),
		filepath.Join(path, NodesDir),
		filepath.Join(path, NodesDir, NodesUserDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return &n3err.ExternalError{Kind: n3err.ErrIO, Op: "n3root.makeRootDir", Err: err}
		}
	}
	return nil
}
