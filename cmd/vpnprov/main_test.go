package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"vpnprov": func() int { return run(os.Args, os.Stdout, os.Stderr) },
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
	})
}

func TestVerbosityLevel(t *testing.T) {
	for v, want := range map[uint16]string{1: "fatal", 2: "error", 3: "warn", 4: "info", 5: "debug", 9: "debug"} {
		if got := verbosityLevel(v).String(); got != want {
			t.Errorf("verbosityLevel(%d) = %s, want %s", v, got, want)
		}
	}
}
