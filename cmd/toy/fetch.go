package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"toylang/interpreter-go/pkg/driver"
)

func runFetch(args []string, logger *slog.Logger) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine working directory: %v\n", err)
		return 1
	}
	manifestPath, err := findManifest(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to locate %s: %v\n", driver.ManifestFileName, err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	cacheDir, err := resolveToyHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve TOY_HOME: %v\n", err)
		return 1
	}

	targets := manifest.GitTargets()
	if len(args) > 0 {
		selected := make([]*driver.TargetSpec, 0, len(args))
		for _, name := range args {
			target, ok := manifest.FindTarget(name)
			if !ok {
				fmt.Fprintf(os.Stderr, "target %q is not defined in %s\n", name, manifest.Path)
				return 1
			}
			if !target.IsGit() {
				fmt.Fprintf(os.Stderr, "target %q is not a git target\n", target.OriginalName)
				return 1
			}
			selected = append(selected, target)
		}
		targets = selected
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Project: %s\n", projectLabel(manifest))
	if len(manifest.Authors) > 0 {
		fmt.Fprintf(os.Stdout, "Authors: %s\n", strings.Join(manifest.Authors, ", "))
	}
	fmt.Fprintf(os.Stdout, "Git targets: %d\n", len(targets))
	fmt.Fprintf(os.Stdout, "Cache directory: %s\n", cacheDir)
	if len(targets) == 0 {
		return 0
	}

	lockPath := filepath.Join(filepath.Dir(manifest.Path), driver.LockfileName)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(os.Stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return 1
	}
	lock.Path = lockPath
	lock.Tool = cliToolVersion

	fetcher := newGitFetcher(cacheDir, logger)
	for _, target := range targets {
		locked, err := fetcher.Fetch(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fetch target %q: %v\n", target.OriginalName, err)
			return 1
		}
		lock.Put(locked)
		fmt.Fprintf(os.Stdout, "Fetched %s %s\n", locked.Name, locked.Version)
	}

	if err := driver.WriteLockfile(lock, lockPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
		return 1
	}
	action := "Updated"
	if lockCreated {
		action = "Created"
	}
	fmt.Fprintf(os.Stdout, "%s %s: %s\n", action, driver.LockfileName, lock.Path)
	return 0
}

func projectLabel(manifest *driver.Manifest) string {
	if manifest.Version == "" {
		return manifest.Name
	}
	return manifest.Name + " " + manifest.Version
}

// lockedCheckoutDir finds the cached checkout pinned for a git target and
// verifies it still matches the lockfile.
func lockedCheckoutDir(manifest *driver.Manifest, target *driver.TargetSpec) (string, error) {
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		return "", err
	}
	entry, ok := lock.Find(target.Name)
	if !ok {
		return "", fmt.Errorf("git target %q is not pinned in %s; run `toy fetch`", target.OriginalName, driver.LockfileName)
	}
	_, descriptor, err := gitRevisionsFromTarget(target)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(entry.Source, "git+"+target.Git+"@") || !pinMatches(entry.Version, descriptor) {
		return "", fmt.Errorf("git target %q source changed since %s was written; run `toy fetch`", target.OriginalName, driver.LockfileName)
	}
	cacheDir, err := resolveToyHome()
	if err != nil {
		return "", err
	}
	checkout := filepath.Join(cacheDir, "src", entry.Name, sanitizePathSegment(entry.Version))
	if info, err := os.Stat(checkout); err != nil || !info.IsDir() {
		return "", fmt.Errorf("git target %q checkout missing at %s; run `toy fetch`", target.OriginalName, checkout)
	}
	if entry.Checksum != "" {
		sum, err := dirChecksum(checkout)
		if err != nil {
			return "", err
		}
		if sum != entry.Checksum {
			return "", fmt.Errorf("git target %q checkout does not match %s checksum; run `toy fetch`", target.OriginalName, driver.LockfileName)
		}
	}
	return checkout, nil
}

// pinMatches reports whether a locked version was fetched for descriptor.
// Versions are either the commit itself or "<descriptor>@<commit>".
func pinMatches(version, descriptor string) bool {
	return version == descriptor || strings.HasPrefix(version, descriptor+"@")
}

type gitFetcher struct {
	cacheDir string
	logger   *slog.Logger
}

func newGitFetcher(cacheDir string, logger *slog.Logger) *gitFetcher {
	if cacheDir == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &gitFetcher{cacheDir: cacheDir, logger: logger}
}

// Fetch clones the target's repository into the cache at the pinned revision
// and returns the lock entry describing the checkout.
func (g *gitFetcher) Fetch(target *driver.TargetSpec) (*driver.LockedTarget, error) {
	if g == nil {
		return nil, errors.New("git fetcher unavailable")
	}
	url := strings.TrimSpace(target.Git)
	if url == "" {
		return nil, fmt.Errorf("target %q: git URL required", target.OriginalName)
	}

	baseDir := filepath.Join(g.cacheDir, "src", target.Name)
	version, commit, err := ensureGitCheckout(baseDir, url, target)
	if err != nil {
		return nil, err
	}
	g.logger.Info("git checkout ready", "target", target.Name, "version", version)

	checkoutDir := filepath.Join(baseDir, sanitizePathSegment(version))
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, err
	}
	return &driver.LockedTarget{
		Name:     target.Name,
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Commit:   commit,
		Checksum: checksum,
	}, nil
}

func ensureGitCheckout(baseDir, url string, target *driver.TargetSpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	revisions, descriptor, err := gitRevisionsFromTarget(target)
	if err != nil {
		return "", "", err
	}
	// A rev names a fixed commit, so an existing checkout can be reused
	// without cloning. Branches and tags can move and are always resolved.
	if rev := strings.TrimSpace(target.Rev); rev != "" {
		if version, commit, ok := cachedRevCheckout(baseDir, rev); ok {
			return version, commit, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	version, commit, err := checkoutInto(tmpDir, url, revisions, descriptor)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}

	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, commit, nil
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, commit, nil
}

// checkoutInto clones url into dir, which must be empty, and checks out the
// first revision that resolves.
func checkoutInto(dir, url string, revisions []plumbing.Revision, descriptor string) (string, string, error) {
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	})
	if err != nil {
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	var hash *plumbing.Hash
	for _, revision := range revisions {
		if hash, err = repo.ResolveRevision(revision); err == nil {
			break
		}
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve revision %s: %w", descriptor, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", "", fmt.Errorf("git checkout %s: %w", descriptor, err)
	}
	return gitPinnedVersion(descriptor, hash.String()), hash.String(), nil
}

// cachedRevCheckout finds a checkout previously fetched for rev. A full
// commit hash is stored under its own name and a short one as "<rev>@<commit>".
func cachedRevCheckout(baseDir, rev string) (string, string, bool) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", "", false
	}
	prefix := sanitizePathSegment(rev)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == prefix && plumbing.IsHash(rev) {
			return rev, rev, true
		}
		commit, ok := strings.CutPrefix(name, prefix+"_")
		if ok && plumbing.IsHash(commit) && strings.HasPrefix(commit, rev) {
			return gitPinnedVersion(rev, commit), commit, true
		}
	}
	return "", "", false
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

// gitRevisionsFromTarget lists the revisions to try, in order. A fresh clone
// only has a local ref for the remote HEAD, so branches fall back to the
// remote-tracking ref.
func gitRevisionsFromTarget(target *driver.TargetSpec) ([]plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(target.Rev); rev != "" {
		return []plumbing.Revision{plumbing.Revision(rev)}, rev, nil
	}
	if tag := strings.TrimSpace(target.Tag); tag != "" {
		return []plumbing.Revision{plumbing.Revision("refs/tags/" + tag)}, tag, nil
	}
	if branch := strings.TrimSpace(target.Branch); branch != "" {
		return []plumbing.Revision{
			plumbing.Revision("refs/remotes/origin/" + branch),
			plumbing.Revision("refs/heads/" + branch),
		}, branch, nil
	}
	return nil, "", fmt.Errorf("git targets require rev, tag, or branch")
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// dirChecksum hashes every file under path, skipping .git. Each file
// contributes its relative path and length before its contents.
func dirChecksum(path string) (string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, p := range files {
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", filepath.ToSlash(rel), len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
