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
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HoKim98/n3/internal/execvars"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3root"
	"github.com/HoKim98/n3/internal/program"
)

var (
	compileVars []string
	compileOut  string

	compileCmd = &cobra.Command{
		Use:   "compile <exec-name>",
		Short: "Build an exec node into a runnable program",
		Long: `Resolves exec-name through the node cache, binds its graph's
declared variables against --var overrides (falling back to each
variable's own declared default), shape-links its node chain, and writes
the resulting program to --out (or prints a summary if --out is unset).`,
		Args: cobra.ExactArgs(1),
		RunE: runCompile,
	}
)

func init() {
	compileCmd.Flags().StringArrayVar(&compileVars, "var", nil, "override a declared variable as name=value (repeatable)")
	compileCmd.Flags().StringVar(&compileOut, "out", "", "path to write the compacted program binary (stdout summary if unset)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	name := args[0]

	root, err := openRoot()
	if err != nil {
		return err
	}
	defer root.Close()

	built, err := root.ResolveNode(name)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}

	overrides, err := parseVarFlags(compileVars)
	if err != nil {
		return err
	}

	vars, err := execvars.Load(queriesFor(built, overrides))
	if err != nil {
		return fmt.Errorf("load variables for %s: %w", name, err)
	}

	prog, err := root.Get(name, vars)
	if err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}

	if compileOut == "" {
		printProgramSummary(name, prog)
		return nil
	}

	data, err := root.CompactToBinary(prog)
	if err != nil {
		return fmt.Errorf("compact %s: %w", name, err)
	}
	if err := os.WriteFile(compileOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", compileOut, err)
	}
	logger.Info("compiled program", "exec", name, "out", compileOut, "bytes", len(data))
	return nil
}

// queriesFor derives one execvars.Query per declared variable on built's
// graph, applying any name=value override found in overrides.
func queriesFor(built ir.TensorNode, overrides map[string]string) []execvars.Query {
	queries := make([]execvars.Query, 0, len(built.Graph().Variables()))
	for varName, v := range built.Graph().Variables() {
		if v.Type == nil {
			continue
		}
		q := execvars.Query{Name: varName, Type: *v.Type}
		if raw, ok := overrides[varName]; ok {
			q.Value = &raw
		}
		queries = append(queries, q)
	}
	return queries
}

func parseVarFlags(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("--var %q: expected name=value", entry)
		}
		out[name] = value
	}
	return out, nil
}

func printProgramSummary(name string, prog program.Program) {
	fmt.Printf("%s: %d node(s), %d script(s)\n", name, len(prog.Nodes), len(prog.Scripts))
	for nodeName := range prog.Nodes {
		fmt.Printf("  node %s\n", nodeName)
	}
	for scriptName := range prog.Scripts {
		fmt.Printf("  script %s\n", scriptName)
	}
}

// openRoot wires the registered parser and source loader into a Root
// rooted at rootDirFlag.
func openRoot() (*n3root.Root, error) {
	if parserFactory == nil {
		return nil, errNoParser
	}
	if sourceLoaderFactory == nil {
		return nil, errNoSourceLoader
	}
	dir := rootDirFlag
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve root directory: %w", err)
		}
		dir = home
	}
	return n3root.NewFromRootDir(parserFactory(), dir, sourceLoaderFactory())
}
