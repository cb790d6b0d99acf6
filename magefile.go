//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildHRDecode)
	fmt.Println("Compilation finished")
	return nil
}

// HDF5 is linked through cgo, CGO_CFLAGS and CGO_LDFLAGS point to it
func BuildHRDecode() error {
	fmt.Println("Building hrdecode executable...")
	return goCommand("build", "-o", "./bin/hrdecode", "./hrdecode")
}

// Test runs the unit tests of the decoding library.
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "./pkg/...")
}

func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
