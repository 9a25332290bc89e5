package forge

import (
	"os"
)

// distBuildAndMerge runs the distribution pipeline up to and including the
// merge: resolve targets, build every component for every target in
// dependency order, fix rpaths on the per-architecture binaries, and merge
// each artifact kind into the universal tree.
//
// Nothing is merged until every target's build of every component has
// finished; the merge is the synchronization barrier between the
// per-target builds and installation.
func distBuildAndMerge(bc *BuildConfiguration, execCtx *Executor) ([]Target, error) {
	l := Layout{BuildPath: bc.BuildPath}

	release, err := acquireBuildLock(l)
	if err != nil {
		return nil, err
	}
	defer release()

	checkDiskSpace(bc.BuildPath)

	targets, err := resolveTargets(bc, execCtx)
	if err != nil {
		return nil, err
	}
	cPrintf(colArrow, "-> ")
	cPrintln(colSuccess, "Build targets:", targetTriples(targets))

	record, err := buildForDistribution(bc, execCtx, targets)
	if err != nil {
		return nil, err
	}

	for _, c := range activeComponents(bc) {
		if _, err := mergeComponent(bc, execCtx, targets, c, record); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// runInstall builds for distribution, assembles every install prefix, and
// optionally packages the universal tree into a distribution archive.
func runInstall(bc *BuildConfiguration, execCtx *Executor, archiveFormat string) error {
	targets, err := distBuildAndMerge(bc, execCtx)
	if err != nil {
		return err
	}
	if err := installToolchain(bc, execCtx, targets); err != nil {
		return err
	}
	if archiveFormat != "" {
		l := Layout{BuildPath: bc.BuildPath}
		archive, err := createDistArchive(l.UniversalDir(), l.DistDir(), archiveFormat)
		if err != nil {
			return err
		}
		cPrintf(colArrow, "-> ")
		cPrintln(colSuccess, "Distribution archive written to", archive)
	}
	return nil
}

// runClean removes the build path entirely.
func runClean(bc *BuildConfiguration) error {
	cPrintln(nil, "Cleaning "+bc.BuildPath)
	return os.RemoveAll(bc.BuildPath)
}

// runBuild performs an incremental development build through the package
// build tool and reports where the products landed.
func runBuild(bc *BuildConfiguration, execCtx *Executor) error {
	if err := swiftPMRun(bc, execCtx, "build", nil, nil); err != nil {
		return err
	}
	binPath, err := swiftPMBinPath(bc, execCtx)
	if err != nil {
		return err
	}
	cPrintf(colArrow, "-> ")
	cPrintln(colSuccess, "Products built in", binPath)
	return nil
}

// runTest runs the package test suite with the toolchain tool locations
// exported explicitly into the child's environment.
func runTest(bc *BuildConfiguration, execCtx *Executor) error {
	return swiftPMRun(bc, execCtx, "test", []string{"--parallel"}, testToolEnv(bc))
}

func targetTriples(targets []Target) string {
	s := ""
	for i, t := range targets {
		if i > 0 {
			s += ", "
		}
		s += t.Triple()
	}
	return s
}
