package forge

import (
	"os/exec"
	"strings"
)

// rpathOutcome classifies an install_name_tool edit.
type rpathOutcome int

const (
	rpathEdited rpathOutcome = iota
	// rpathNoop covers the expected incremental-rebuild cases: deleting a
	// path that was already stripped, or adding one that is already there.
	rpathNoop
	rpathFailed
)

type rpathResult struct {
	Outcome rpathOutcome
	Output  string
}

// Diagnostic fragments the binary-metadata editor prints for the two
// expected no-op cases. Anything else on a non-zero exit is a real failure.
const (
	diagNoSuchRPath  = "no LC_RPATH load command with path"
	diagDuplicateAdd = "would duplicate path"
)

// editRPath runs one add or delete edit on a per-architecture binary.
// Both edits are idempotent: a no-op is reported, not failed, so re-running
// against an already-fixed tree is safe.
func editRPath(bc *BuildConfiguration, execCtx *Executor, op, rpath, binary string) (rpathResult, error) {
	cmd := exec.Command(bc.Tool("install_name_tool"), op, rpath, binary)
	cmd.Env = bc.BuildEnv()
	out, err := execCtx.RunCapture(cmd)
	if err == nil {
		return rpathResult{Outcome: rpathEdited, Output: out}, nil
	}
	if strings.Contains(out, diagNoSuchRPath) || strings.Contains(out, diagDuplicateAdd) {
		return rpathResult{Outcome: rpathNoop, Output: out}, nil
	}
	return rpathResult{Outcome: rpathFailed, Output: out}, err
}

// deleteRPath removes a runtime search path from a binary's load metadata.
// An absent path logs a warning and continues; that is the normal case on
// incremental rebuilds where a previous run already stripped it.
func deleteRPath(bc *BuildConfiguration, execCtx *Executor, rpath, binary string) error {
	res, err := editRPath(bc, execCtx, "-delete_rpath", rpath, binary)
	if res.Outcome == rpathNoop {
		cPrintf(colWarn, "Warning: rpath %s not present in %s, nothing to delete\n", rpath, binary)
		return nil
	}
	return err
}

// addRPath embeds a runtime search path. A duplicate add is a no-op.
func addRPath(bc *BuildConfiguration, execCtx *Executor, rpath, binary string) error {
	res, err := editRPath(bc, execCtx, "-add_rpath", rpath, binary)
	if res.Outcome == rpathNoop {
		cPrintf(colWarn, "Warning: rpath %s already present in %s\n", rpath, binary)
		return nil
	}
	return err
}

// fixBinaryRPaths strips every dependency's build-tree lib dir from one
// per-architecture binary and embeds the install-relative path instead.
// Must run before merging: an edit after the merge could not be applied to
// a single architecture slice.
func fixBinaryRPaths(bc *BuildConfiguration, execCtx *Executor, t Target, c Component, binary string) error {
	l := Layout{BuildPath: bc.BuildPath}
	for _, dep := range append([]string{c.Name}, c.Deps...) {
		if err := deleteRPath(bc, execCtx, l.ComponentLibDir(t, dep), binary); err != nil {
			return err
		}
	}
	return addRPath(bc, execCtx, installRPath(t), binary)
}
