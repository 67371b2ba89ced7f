//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Fixtures converts a directory of legacy fixtures to structured YAML with
// the freshly built binary.
//
//	mage fixtures --src ../test-suite/processor-tests/humans --dst fixtures --skip a,b
func Fixtures() error {
	fs := flag.NewFlagSet("fixtures", flag.ContinueOnError)
	src := fs.String("src", os.Getenv("CITEFIX_SUITE_DIR"), "directory of legacy .txt fixtures")
	dst := fs.String("dst", "fixtures", "output directory for .yml fixtures")
	skip := fs.String("skip", "", "comma-separated fixture names to leave out")
	lenient := fs.Bool("lenient", false, "recover from malformed fixtures")
	parseTargetFlags(fs)

	if *src == "" {
		return errors.New("fixtures: --src or CITEFIX_SUITE_DIR is required")
	}
	mg.Deps(Build)

	args := []string{"convert-dir", *src, *dst}
	if *skip != "" {
		args = append(args, "--skip", *skip)
	}
	if *lenient {
		args = append([]string{"--strict=false"}, args...)
	}
	return sh.RunV(filepath.Join(binaryDir, binaryName), args...)
}

// Check builds the binary and checks every structured fixture in a
// directory.
//
//	mage check --dir fixtures --engine process
func Check() error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	dir := fs.String("dir", "fixtures", "directory of .yml fixtures")
	engine := fs.String("engine", "", "engine override")
	parseTargetFlags(fs)

	mg.Deps(Build)
	paths, err := filepath.Glob(filepath.Join(*dir, "*.yml"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("check: no fixtures in " + *dir)
	}

	var args []string
	if *engine != "" {
		args = append(args, "--engine", *engine)
	}
	args = append(append(args, "check"), paths...)
	return sh.RunV(filepath.Join(binaryDir, binaryName), args...)
}
