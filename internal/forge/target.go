package forge

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Target identifies one architecture/OS pair code is compiled for.
// Immutable once resolved.
type Target struct {
	Arch              string
	OSFamily          string // macos | ios | linux | ...
	DeploymentVersion string
	triple            string

	// Carried from a cross-compile descriptor, empty otherwise. SDKRoot
	// overrides the configured sysroot for this target only.
	SDKRoot          string
	ExtraSwiftcFlags []string
	ExtraCCFlags     []string
}

// Triple renders the target as the triple string handed to build tools.
func (t Target) Triple() string {
	return t.triple
}

func (t Target) String() string {
	return t.triple
}

// newMacOSTarget builds a desktop target pinned to the fixed deployment
// version used for distribution builds.
func newMacOSTarget(arch string) Target {
	return Target{
		Arch:              arch,
		OSFamily:          "macos",
		DeploymentVersion: macOSDeploymentVersion,
		triple:            arch + "-apple-macos" + macOSDeploymentVersion,
	}
}

// parseTargetTriple splits an <arch>-<vendor>-<os><version> triple. The
// triple is kept verbatim so pass-through targets render unchanged.
func parseTargetTriple(s string) (Target, error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) < 3 || parts[0] == "" || parts[2] == "" {
		return Target{}, configErrorf("malformed target triple %q", s)
	}
	osPart := parts[2]
	// Strip environment suffix (e.g. linux-gnu, ios-simulator) before
	// splitting off the version digits.
	family := osPart
	if i := strings.IndexByte(family, '-'); i >= 0 {
		family = family[:i]
	}
	ver := family[len(strings.TrimRight(family, "0123456789.")):]
	family = strings.TrimRight(family, "0123456789.")
	if family == "macosx" {
		family = "macos"
	}
	return Target{
		Arch:              parts[0],
		OSFamily:          family,
		DeploymentVersion: ver,
		triple:            s,
	}, nil
}

// targetInfo mirrors the compiler's -print-target-info JSON.
type targetInfo struct {
	Target struct {
		Triple            string `json:"triple"`
		UnversionedTriple string `json:"unversionedTriple"`
	} `json:"target"`
}

// queryTargetInfo asks the toolchain compiler for its default target.
func queryTargetInfo(bc *BuildConfiguration, execCtx *Executor) (*targetInfo, error) {
	cmd := exec.Command(bc.SwiftcExec(), "-print-target-info")
	cmd.Env = bc.BuildEnv()
	out, err := execCtx.RunCapture(cmd)
	if err != nil {
		return nil, err
	}
	var info targetInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("parsing target info from %s: %w", bc.SwiftcExec(), err)
	}
	if info.Target.Triple == "" || info.Target.UnversionedTriple == "" {
		return nil, fmt.Errorf("target info from %s is missing triple fields", bc.SwiftcExec())
	}
	return &info, nil
}

// crossCompileConfig is the JSON descriptor naming an explicit cross target
// and the extra flags its build needs.
type crossCompileConfig struct {
	Target           string   `json:"target"`
	SDK              string   `json:"sdk"`
	ExtraSwiftcFlags []string `json:"extra-swiftc-flags"`
	ExtraCCFlags     []string `json:"extra-cc-flags"`
}

func loadCrossCompileConfig(path string) (*crossCompileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cross-compile config: %w", err)
	}
	var cc crossCompileConfig
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("parsing cross-compile config %s: %w", path, err)
	}
	if cc.Target == "" {
		return nil, configErrorf("cross-compile config %s does not name a target", path)
	}
	return &cc, nil
}

// oppositeDesktopArch maps each supported desktop architecture to its twin.
func oppositeDesktopArch(arch string) string {
	switch arch {
	case "x86_64":
		return "arm64"
	case "arm64":
		return "x86_64"
	}
	return ""
}

// resolveTargets computes the ordered, deduplicated list of build targets.
//
// With no cross-compile request the list is just the canonical build target
// reported by the toolchain compiler. Requesting the opposite desktop
// architecture expands to both desktop architectures, pinned to the fixed
// deployment version, so the merged artifacts are universal. Mobile-OS
// hosts pass through verbatim. Every other combination is rejected before
// any build runs.
func resolveTargets(bc *BuildConfiguration, execCtx *Executor) ([]Target, error) {
	info, err := queryTargetInfo(bc, execCtx)
	if err != nil {
		return nil, err
	}
	canonical, err := parseTargetTriple(info.Target.UnversionedTriple)
	if err != nil {
		return nil, fmt.Errorf("compiler reported %q: %w", info.Target.UnversionedTriple, err)
	}

	hosts := append([]string(nil), bc.CrossHosts...)
	var cc *crossCompileConfig
	if bc.CrossConfig != "" {
		if cc, err = loadCrossCompileConfig(bc.CrossConfig); err != nil {
			return nil, err
		}
		hosts = append(hosts, cc.Target)
	}

	if len(hosts) == 0 {
		return []Target{canonical}, nil
	}

	var targets []Target
	for _, host := range hosts {
		h, err := parseTargetTriple(host)
		if err != nil {
			return nil, err
		}
		if cc != nil && host == cc.Target {
			h.SDKRoot = cc.SDK
			h.ExtraSwiftcFlags = cc.ExtraSwiftcFlags
			h.ExtraCCFlags = cc.ExtraCCFlags
		}
		switch {
		case h.OSFamily == "macos" && canonical.OSFamily == "macos" &&
			h.Arch == oppositeDesktopArch(canonical.Arch):
			// Opposite desktop architecture: build both slices.
			targets = append(targets,
				newMacOSTarget("x86_64"),
				newMacOSTarget("arm64"))
		case h.OSFamily == "ios":
			targets = append(targets, h)
		default:
			return nil, configErrorf(
				"unsupported cross-compile host %q for build target %q",
				host, canonical.Triple())
		}
	}

	return dedupeTargets(targets), nil
}

// dedupeTargets drops repeated triples while keeping first-seen order.
func dedupeTargets(in []Target) []Target {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, t := range in {
		if seen[t.triple] {
			continue
		}
		seen[t.triple] = true
		out = append(out, t)
	}
	return out
}
