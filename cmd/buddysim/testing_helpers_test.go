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
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// runCLI executes a fresh command tree with the given stdin and arguments.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// lines joins script or shell input lines.
func lines(ll ...string) string {
	return strings.Join(ll, "\n") + "\n"
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// decodeJSONStream decodes every JSON document in output.
func decodeJSONStream(t *testing.T, output string) []interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(output))
	var docs []interface{}
	for dec.More() {
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
		}
		docs = append(docs, v)
	}
	return docs
}
