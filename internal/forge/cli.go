package forge

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// Set to 1 while an install is mutating a prefix; the signal handler then
// refuses the first interrupt.
var isCriticalAtomic atomic.Int32

// multiValue collects a repeatable string flag.
type multiValue []string

func (m *multiValue) String() string {
	return strings.Join(*m, ",")
}

func (m *multiValue) Set(v string) error {
	*m = append(*m, v)
	return nil
}

type commonOpts struct {
	packagePath   string
	toolchain     string
	buildPath     string
	configuration string
	sysroot       string
	sanitizer     string
	crossConfig   string
	prefixes      multiValue
	crossHosts    multiValue
	verbose       bool
}

func addCommonFlags(fs *flag.FlagSet) *commonOpts {
	o := &commonOpts{}
	fs.StringVar(&o.packagePath, "package-path", ".", "directory of the driver package to build")
	fs.StringVar(&o.toolchain, "toolchain", "", "build using the toolchain at PATH")
	fs.StringVar(&o.buildPath, "build-path", ".build", "build in the given path")
	fs.StringVar(&o.configuration, "configuration", "debug", "build using configuration (release|debug)")
	fs.StringVar(&o.configuration, "c", "debug", "shorthand for -configuration")
	fs.StringVar(&o.sysroot, "sysroot", "", "SDK root for the build (resolved by the caller)")
	fs.StringVar(&o.sanitizer, "sanitizer", "", "build with the given sanitizer (address|thread|undefined)")
	fs.StringVar(&o.crossConfig, "cross-compile-config", "", "path to a cross-compile target descriptor file")
	fs.Var(&o.prefixes, "prefix", "install prefix (repeatable)")
	fs.Var(&o.crossHosts, "cross-compile-hosts", "cross-compile host triple (repeatable)")
	fs.BoolVar(&o.verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose output")
	return o
}

func (o *commonOpts) buildConfiguration(cfg *Config) (*BuildConfiguration, error) {
	if o.configuration != "debug" && o.configuration != "release" {
		return nil, configErrorf("unknown configuration %q (want debug or release)", o.configuration)
	}
	return NewBuildConfiguration(BuildConfiguration{
		PackagePath:   o.packagePath,
		BuildPath:     o.buildPath,
		Toolchain:     o.toolchain,
		Configuration: o.configuration,
		Prefixes:      o.prefixes,
		Sysroot:       o.sysroot,
		Sanitizer:     o.sanitizer,
		CrossHosts:    o.crossHosts,
		CrossConfig:   o.crossConfig,
		Verbose:       o.verbose || Verbose,
	}, cfg)
}

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: swiftforge <action> [arguments]")
	colSuccess.Println("Run 'swiftforge <action> -h' for action options")
	fmt.Println()
	color.Info.Println("Available Actions:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"version, --version", "", "Version information"},
		{"clean", "[options]", "Remove the build path"},
		{"build", "[options]", "Incremental development build of the driver package"},
		{"test", "[options]", "Run the driver package test suite"},
		{"install", "[options]", "Build for distribution, merge architectures, install into prefixes"},
		{"log", "<target> <component>", "View a component's captured build log"},
		{"upload", "<archive> [key]", "Upload a distribution archive to the artifact store"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usageString string
		if c.Args != "" {
			usageString = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usageString = fmt.Sprintf("  %s", c.Cmd)
		}

		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}

		pad := columnWidth - len(usageString)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))
		color.Info.Println(c.Desc)
	}
	fmt.Println()
}

// Main is the CLI entrypoint for cmd/swiftforge.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					colArrow.Print("\n-> ")
					colError.Printf("Install in progress. Press Ctrl+C AGAIN to force exit NOW.\n")
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				} else {
					colArrow.Print("\n-> ")
					color.Danger.Printf("Received %v. Cancelling build gracefully\n", sig)
					cancel()
					time.Sleep(100 * time.Millisecond)
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						color.Danger.Printf("Second interrupt received. Forcing immediate exit.")
						os.Exit(130)
					case <-time.After(2 * time.Second):
						colArrow.Print("\n-> ")
						color.Danger.Printf("Graceful shutdown timeout. Exiting.")
						os.Exit(0)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if len(os.Args) < 2 {
		printHelp()
		return
	}

	configPath := ConfigFile
	if v := os.Getenv("SWIFTFORGE_CONFIG"); v != "" {
		configPath = v
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", configPath, err)
	}
	Debug = cfg.Values["SWIFTFORGE_DEBUG"] == "1"
	Verbose = cfg.Values["SWIFTFORGE_VERBOSE"] == "1"

	execCtx := NewExecutor(ctx)

	switch os.Args[1] {
	case "version", "--version":
		fmt.Printf("swiftforge %s (%s)\n", version, buildDate)

	case "clean":
		fs := flag.NewFlagSet("clean", flag.ExitOnError)
		opts := addCommonFlags(fs)
		fs.Parse(os.Args[2:])
		bc, err := opts.buildConfiguration(cfg)
		if err == nil {
			err = runClean(bc)
		}
		exitOn(err)

	case "build", "b":
		fs := flag.NewFlagSet("build", flag.ExitOnError)
		opts := addCommonFlags(fs)
		fs.Parse(os.Args[2:])
		bc, err := opts.buildConfiguration(cfg)
		if err == nil {
			execCtx.Echo = bc.Verbose
			err = runBuild(bc, execCtx)
		}
		exitOn(err)

	case "test", "t":
		fs := flag.NewFlagSet("test", flag.ExitOnError)
		opts := addCommonFlags(fs)
		fs.Parse(os.Args[2:])
		bc, err := opts.buildConfiguration(cfg)
		if err == nil {
			execCtx.Echo = bc.Verbose
			err = runTest(bc, execCtx)
		}
		exitOn(err)

	case "install", "i":
		fs := flag.NewFlagSet("install", flag.ExitOnError)
		opts := addCommonFlags(fs)
		archive := fs.String("archive", "", "also package the universal tree (zst|gz)")
		fs.Parse(os.Args[2:])
		bc, err := opts.buildConfiguration(cfg)
		if err == nil && len(bc.Prefixes) == 0 {
			err = configErrorf("install requires at least one -prefix")
		}
		if err == nil {
			execCtx.Echo = bc.Verbose
			isCriticalAtomic.Store(1)
			err = runInstall(bc, execCtx, *archive)
			isCriticalAtomic.Store(0)
		}
		exitOn(err)

	case "log":
		fs := flag.NewFlagSet("log", flag.ExitOnError)
		opts := addCommonFlags(fs)
		fs.Parse(os.Args[2:])
		args := fs.Args()
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: swiftforge log [options] <target-triple> <component>")
			os.Exit(1)
		}
		t, err := parseTargetTriple(args[0])
		if err == nil {
			var lines []string
			l := Layout{BuildPath: opts.buildPath}
			lines, err = readBuildLog(l, t, args[1])
			if err == nil {
				err = runPager(args[1]+" @ "+t.Triple(), lines)
			}
		}
		exitOn(err)

	case "upload":
		fs := flag.NewFlagSet("upload", flag.ExitOnError)
		fs.Parse(os.Args[2:])
		args := fs.Args()
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: swiftforge upload <archive> [key]")
			os.Exit(1)
		}
		store, err := NewArtifactStore(cfg)
		if err == nil {
			key := strings.TrimPrefix(args[0], "./")
			if len(args) > 1 {
				key = args[1]
			}
			cPrintf(colArrow, "-> ")
			cPrintln(colSuccess, "Uploading", args[0], "as", key)
			err = store.UploadLocalFile(ctx, key, args[0])
		}
		exitOn(err)

	case "help", "-h", "--help":
		printHelp()

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

// exitOn reports a fatal pipeline error and exits with the code of the
// failing external tool, or 1 for configuration errors.
func exitOn(err error) {
	if err == nil {
		return
	}
	colArrow.Print("-> ")
	colError.Printf("%v\n", err)
	os.Exit(exitCodeFor(err))
}
