//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every test with the race detector.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the package tests without the race detector, skipping
// packages that have no test files.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "-f", "{{if .TestGoFiles}}{{.ImportPath}}{{end}}", "./...")
	if err != nil {
		return err
	}
	var testPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			testPkgs = append(testPkgs, pkg)
		}
	}
	if len(testPkgs) == 0 {
		fmt.Println("No test packages found.")
		return nil
	}
	return sh.RunV(binGo, append([]string{"test"}, testPkgs...)...)
}

// Cover runs every test and writes coverage.out.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func=coverage.out")
}
