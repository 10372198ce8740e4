package main

import (
	"bytes"
	"testing"
)

func TestRootCommandHasExpectedSubcommands(t *testing.T) {
	root := buildRootCommand()

	want := map[string]bool{
		"onboard": false,
		"chat":    false,
		"serve":   false,
		"queue":   false,
		"sweep":   false,
		"status":  false,
		"version": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRootWithoutSubcommandErrors(t *testing.T) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(nil)

	if err := root.Execute(); err == nil {
		t.Fatalf("bare invocation should require a subcommand")
	}
}

func TestVersionFlag(t *testing.T) {
	root := buildRootCommand()
	root.SetArgs([]string{"--version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("--version: %v", err)
	}
}
