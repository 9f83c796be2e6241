/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Execute allocation commands from a script",
		Long: `The run command reads one command per line from a script file,
or from standard input when the script is omitted or "-".

Commands:
  add <size>...        Queue processes
  alloc [size...]      Allocate the given sizes, or every queued process
  free <addr> <size>   Deallocate a block
  show                 Display memory state
  table                Display the allocation table
  pending              List queued processes
  check                Verify that free and allocated blocks tile the arena
  reset                Free everything

Example:
  buddysim run -m 1024 workload.txt
  echo "alloc 100 200" | buddysim run -m 1024 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts, args, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first failing command")
	return cmd
}

func runScript(cmd *cobra.Command, opts *options, args []string, strict bool) error {
	if opts.memory == 0 {
		return errors.New("run requires --memory")
	}
	s, err := opts.newSession(cmd, opts.memory)
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	c := &console{s: s, out: cmd.OutOrStdout(), jsonOut: opts.jsonOut}
	sc := bufio.NewScanner(r)
	failed := 0
	for lineNo := 1; sc.Scan(); lineNo++ {
		if err := c.exec(sc.Text()); err != nil {
			if strict {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", lineNo, err)
			failed++
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d command(s) failed", failed)
	}
	return nil
}
