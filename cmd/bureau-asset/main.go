// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/bureau-asset/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Handle --version before dispatch to match the service binary.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "bureau-asset")
		return nil
	}
	return root(os.Stdout).Execute(os.Args[1:])
}
