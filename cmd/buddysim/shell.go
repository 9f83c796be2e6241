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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddykit/buddy"
	"github.com/cloudwego/buddykit/internal/sim"
)

const menu = `
Options:
1. Add Process
2. Allocate Memory for Processes
3. Deallocate Memory
4. Display Memory State
5. Display Allocation Table
6. Exit
`

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run the interactive simulator menu",
		Long: `The shell command runs a menu-driven session: queue processes,
allocate them as a batch, free blocks by address, and display the memory
state and allocation table. It ends on "Exit" or end of input.

Example:
  buddysim shell
  buddysim shell -m 1024 -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}
}

type shell struct {
	in  *bufio.Scanner
	out io.Writer
}

// prompt prints msg and reads one line. ok is false at end of input.
func (sh *shell) prompt(msg string) (line string, ok bool) {
	fmt.Fprint(sh.out, msg)
	if !sh.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.in.Text()), true
}

// readInt prompts until an integer is entered. ok is false at end of input.
func (sh *shell) readInt(msg string) (int, bool) {
	for {
		line, ok := sh.prompt(msg)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err == nil {
			return n, true
		}
		fmt.Fprintf(sh.out, "Invalid number %q.\n", line)
	}
}

func runShell(cmd *cobra.Command, opts *options) error {
	log, err := opts.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sh := &shell{in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()}
	fmt.Fprintln(sh.out, "Welcome to the Buddy System Memory Allocation Simulator")

	var a *buddy.Allocator
	for a == nil {
		total := opts.memory
		if total == 0 {
			n, ok := sh.readInt("Enter the total memory size (power of 2): ")
			if !ok {
				return nil
			}
			total = n
		}
		a, err = buddy.New(total)
		if err != nil {
			if opts.memory != 0 || !errors.Is(err, buddy.ErrInvalidSize) {
				return err
			}
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}

	c := &console{s: sim.NewSession(a, log), out: sh.out, jsonOut: opts.jsonOut}
	for {
		fmt.Fprint(sh.out, menu)
		choice, ok := sh.readInt("Enter your choice: ")
		if !ok {
			return nil
		}

		var err error
		switch choice {
		case 1:
			size, ok := sh.readInt("Enter process size: ")
			if !ok {
				return nil
			}
			err = c.add(size)
		case 2:
			err = c.allocate()
		case 3:
			addr, ok := sh.readInt("Enter starting address of the block to deallocate: ")
			if !ok {
				return nil
			}
			size, ok := sh.readInt("Enter size of the block to deallocate: ")
			if !ok {
				return nil
			}
			err = c.free(addr, size)
		case 4:
			err = c.show()
		case 5:
			err = c.table()
		case 6:
			return nil
		default:
			fmt.Fprintln(sh.out, "Invalid choice. Try again.")
		}
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}
}
