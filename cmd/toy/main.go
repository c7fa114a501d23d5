package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"toylang/interpreter-go/pkg/driver"
)

const cliToolVersion = "toy-cli 0.0.0-dev"

var errManifestNotFound = errors.New("toy.yml not found")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	logger := newLogger(os.Stderr)
	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:], logger)
	case "tokens":
		return runDump(driver.DumpTokens, args[1:])
	case "ast":
		return runDump(driver.DumpAST, args[1:])
	case "fetch":
		return runFetch(args[1:], logger)
	default:
		return runEntry(args, logger)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  toy <file.toy>")
	fmt.Fprintln(os.Stderr, "  toy run [target|file.toy] [--dump tokens,ast]")
	fmt.Fprintln(os.Stderr, "  toy tokens <file.toy>")
	fmt.Fprintln(os.Stderr, "  toy ast <file.toy>")
	fmt.Fprintln(os.Stderr, "  toy fetch [target ...]")
	fmt.Fprintln(os.Stderr, "  toy version")
}

// splitDumpFlag pulls --dump out of args, accepting both "--dump a,b" and
// "--dump=a,b".
func splitDumpFlag(args []string) ([]string, []driver.DumpKind, bool, error) {
	var rest []string
	var names []string
	seen := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--dump":
			if i+1 >= len(args) {
				return nil, nil, false, fmt.Errorf("--dump requires a value (tokens, ast)")
			}
			i++
			names = append(names, strings.Split(args[i], ",")...)
			seen = true
		case strings.HasPrefix(arg, "--dump="):
			names = append(names, strings.Split(strings.TrimPrefix(arg, "--dump="), ",")...)
			seen = true
		default:
			rest = append(rest, arg)
		}
	}
	kinds, err := driver.ParseDumpKinds(names)
	if err != nil {
		return nil, nil, false, err
	}
	return rest, kinds, seen, nil
}

func runEntry(args []string, logger *slog.Logger) int {
	args, dumps, dumpFlag, err := splitDumpFlag(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	manifest, manifestErr := loadManifestFrom(".")
	if manifestErr != nil {
		switch {
		case errors.Is(manifestErr, errManifestNotFound):
			// No manifest nearby; fall back to file-based invocation if possible.
			manifest = nil
		case len(args) == 1 && looksLikePathCandidate(args[0]):
			fmt.Fprintf(os.Stderr, "warning: unable to load manifest (%v); falling back to direct file execution\n", manifestErr)
			manifest = nil
		default:
			fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", manifestErr)
			return 1
		}
	}
	if !dumpFlag && manifest != nil {
		dumps = manifest.Dump
	}

	if len(args) == 0 {
		if manifest == nil {
			fmt.Fprintln(os.Stderr, "toy run requires a manifest target or source file (toy.yml not found)")
			return 1
		}
		target, err := manifest.DefaultTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest error: %v\n", err)
			return 1
		}
		return runTarget(manifest, target, dumps, logger)
	}

	candidate := args[0]
	if manifest != nil {
		if target, ok := manifest.FindTarget(candidate); ok && !looksLikePathCandidate(candidate) {
			return runTarget(manifest, target, dumps, logger)
		}
	}
	return executeEntry(candidate, dumps, logger)
}

func runTarget(manifest *driver.Manifest, target *driver.TargetSpec, dumps []driver.DumpKind, logger *slog.Logger) int {
	entryPath, err := resolveTargetMain(manifest, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve target %q: %v\n", target.OriginalName, err)
		return 1
	}
	logger.Debug("resolved target", "target", target.Name, "entry", entryPath)
	return executeEntry(entryPath, dumps, logger)
}

func executeEntry(entry string, dumps []driver.DumpKind, logger *slog.Logger) int {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		fmt.Fprintln(os.Stderr, "toy run requires a source file")
		return 1
	}
	source, err := os.ReadFile(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", entry, err)
		return 1
	}

	opts := driver.Options{
		Dump:       dumps,
		DumpOutput: os.Stderr,
		Logger:     logger.With("entry", entry),
	}
	if err := driver.Run(string(source), os.Stdout, opts); err != nil {
		reportError(entry, err)
		return 1
	}
	return 0
}

func runDump(kind driver.DumpKind, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "toy %s requires exactly one source file\n", kind)
		return 1
	}
	entry := args[0]
	source, err := os.ReadFile(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", entry, err)
		return 1
	}

	switch kind {
	case driver.DumpTokens:
		tokens, err := driver.Tokenize(string(source))
		if err != nil {
			reportError(entry, err)
			return 1
		}
		err = driver.WriteTokens(os.Stdout, tokens)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case driver.DumpAST:
		_, program, err := driver.Compile(string(source))
		if err != nil {
			reportError(entry, err)
			return 1
		}
		if err := driver.WriteProgram(os.Stdout, program); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}

func reportError(entry string, err error) {
	var stageErr *driver.StageError
	if errors.As(err, &stageErr) && stageErr.Location.Line > 0 {
		fmt.Fprintf(os.Stderr, "%s:%s: %v\n", entry, stageErr.Location, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", entry, err)
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	manifestPath, err := findManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, driver.ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", driver.ManifestFileName, origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveToyHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("TOY_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve TOY_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".toy"), nil
}

func resolveTargetMain(manifest *driver.Manifest, target *driver.TargetSpec) (string, error) {
	if manifest == nil || target == nil {
		return "", fmt.Errorf("missing manifest or target")
	}
	mainPath := strings.TrimSpace(target.Main)
	if mainPath == "" {
		return "", fmt.Errorf("target %q missing main entrypoint", target.OriginalName)
	}
	if target.IsGit() {
		checkout, err := lockedCheckoutDir(manifest, target)
		if err != nil {
			return "", err
		}
		return filepath.Join(checkout, filepath.FromSlash(mainPath)), nil
	}
	if filepath.IsAbs(mainPath) {
		return filepath.Clean(mainPath), nil
	}
	base := filepath.Dir(manifest.Path)
	if base == "" {
		return filepath.Clean(filepath.FromSlash(mainPath)), nil
	}
	return filepath.Join(base, filepath.FromSlash(mainPath)), nil
}

func looksLikePathCandidate(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.ContainsAny(arg, `/\`) {
		return true
	}
	return strings.HasSuffix(arg, ".toy")
}

func loadLockfileForManifest(manifest *driver.Manifest) (*driver.Lockfile, error) {
	if manifest == nil {
		return nil, nil
	}
	lockPath := filepath.Join(filepath.Dir(manifest.Path), driver.LockfileName)
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if len(manifest.GitTargets()) > 0 {
				return nil, fmt.Errorf("%s missing for %q; run `toy fetch`", driver.LockfileName, manifest.Name)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lockfile %s: %w", lockPath, err)
	}
	if lock.Root != manifest.Name {
		return nil, fmt.Errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
	}
	return lock, nil
}
