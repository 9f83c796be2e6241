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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddykit/buddy"
	"github.com/cloudwego/buddykit/internal/logger"
	"github.com/cloudwego/buddykit/internal/sim"
)

// options holds the persistent flags shared by all commands.
type options struct {
	memory    int
	jsonOut   bool
	verbose   bool
	quiet     bool
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "buddysim",
		Short: "Simulate buddy system memory allocation",
		Long: `buddysim manages an arena of 2^N units with the buddy algorithm.
Requests are rounded up to a power of two and carved out of larger free
blocks by splitting; freed blocks are merged with their buddy whenever the
buddy is free.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.IntVarP(&opts.memory, "memory", "m", 0, "Total memory size, a power of two (prompted for by shell if unset)")
	pf.BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every allocation and free")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable logging")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Minimum log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", string(logger.FormatText), "Log format (text, json)")

	cmd.AddCommand(newShellCmd(opts), newRunCmd(opts), newVersionCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the logger for a command. Logs go to w.
func (o *options) newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		level = slog.LevelDebug
	}
	return logger.New(w, logger.Options{
		Enabled: !o.quiet,
		Level:   level,
		Format:  logger.Format(o.logFormat),
	})
}

// newSession creates a session over an arena of total units.
func (o *options) newSession(cmd *cobra.Command, total int) (*sim.Session, error) {
	log, err := o.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a, err := buddy.New(total)
	if err != nil {
		return nil, err
	}
	return sim.NewSession(a, log), nil
}
