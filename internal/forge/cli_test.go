package forge

import (
	"flag"
	"testing"
)

func TestCommonOptsVerboseGlobal(t *testing.T) {
	old := Verbose
	defer func() { Verbose = old }()

	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}

	Verbose = true
	bc, err := opts.buildConfiguration(&Config{Values: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if !bc.Verbose {
		t.Error("configured verbosity not honored without the -v flag")
	}
}

func TestCommonOptsRejectsBadConfiguration(t *testing.T) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	if err := fs.Parse([]string{"-configuration", "profile"}); err != nil {
		t.Fatal(err)
	}
	if _, err := opts.buildConfiguration(&Config{Values: map[string]string{}}); err == nil {
		t.Fatal("unknown configuration accepted")
	}
}

func TestCommonOptsRepeatableFlags(t *testing.T) {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	args := []string{
		"-prefix", "/opt/a", "-prefix", "/opt/b",
		"-cross-compile-hosts", "x86_64-apple-macosx",
		"-configuration", "release",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	bc, err := opts.buildConfiguration(&Config{Values: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(bc.Prefixes) != 2 {
		t.Errorf("prefixes = %v, want both", bc.Prefixes)
	}
	if len(bc.CrossHosts) != 1 || bc.CrossHosts[0] != "x86_64-apple-macosx" {
		t.Errorf("cross hosts = %v", bc.CrossHosts)
	}
}
