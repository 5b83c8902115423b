package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestNewRootCmd tests command registration.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if cmd.Use != "credshield" {
		t.Errorf("Use = %q", cmd.Use)
	}

	want := map[string]bool{
		"scan":    false,
		"verify":  false,
		"domains": false,
		"version": false,
	}
	for _, sub := range cmd.Commands() {
		name := strings.Fields(sub.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q is not registered", name)
		}
	}

	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("persistent --verbose flag is missing")
	}
}

// TestVersionCmd tests the version output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(out.String(), "credshield ") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}
