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
	"sort"

	"github.com/spf13/cobra"

	"github.com/HoKim98/n3/internal/compact"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <program.n3c>",
	Short: "Print the structure of a previously compiled program",
	Long: `Reads a program binary written by "n3c compile --out" and prints its
node and variable layout. Inspect never parses source and never touches
the node cache, so it needs neither a registered parser nor a source
loader.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	prog, err := compact.LoadFromBinary(data)
	if err != nil {
		return fmt.Errorf("decompact %s: %w", args[0], err)
	}

	nodeNames := make([]string, 0, len(prog.Nodes))
	for name := range prog.Nodes {
		nodeNames = append(nodeNames, name)
	}
	sort.Strings(nodeNames)

	var varNames []string
	if prog.Graph != nil {
		varNames = make([]string, 0, len(prog.Graph.Variables))
		for name := range prog.Graph.Variables {
			varNames = append(varNames, name)
		}
	}
	sort.Strings(varNames)

	fmt.Printf("%s: %d node(s), %d retained variable(s), %d script(s)\n",
		args[0], len(prog.Nodes), len(varNames), len(prog.Scripts))
	for _, name := range nodeNames {
		fmt.Printf("  node   %s\n", name)
	}
	for _, name := range varNames {
		fmt.Printf("  var    %s\n", name)
	}
	return nil
}
