package main

import (
	"os/exec"
	"strings"
	"testing"
)

func TestHelpFlagExitsZero(t *testing.T) {
	cmd := exec.Command("go", "run", ".", "--help")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			t.Fatalf("expected exit code 0 for --help, got %d: %s", exitErr.ExitCode(), output)
		}
		t.Fatalf("failed to run: %v", err)
	}
	if !strings.Contains(string(output), "miditui - a terminal-resident DAW") {
		t.Error("--help output should contain the usage banner")
	}
}

func TestUnknownFlagExitsNonZero(t *testing.T) {
	cmd := exec.Command("go", "run", ".", "--bogus")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected a non-zero exit for an unrecognized flag")
	}
}
