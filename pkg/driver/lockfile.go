package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockfileName sits next to toy.yml.
const LockfileName = "toy.lock"

// Lockfile models the toy.lock contents.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Tool      string
	Targets   []*LockedTarget
}

// LockedTarget pins a git target to a commit and a checksum of its checkout.
type LockedTarget struct {
	Name     string
	Version  string
	Source   string
	Commit   string
	Checksum string
}

// NewLockfile constructs a lockfile with metadata seeded for the provided root.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Targets:   []*LockedTarget{},
	}
}

// Find returns the pinned entry for a target name.
func (l *Lockfile) Find(name string) (*LockedTarget, bool) {
	if l == nil {
		return nil, false
	}
	key := sanitizeSegment(name)
	for _, target := range l.Targets {
		if target != nil && target.Name == key {
			return target, true
		}
	}
	return nil, false
}

// Put inserts or replaces the entry for target.Name.
func (l *Lockfile) Put(target *LockedTarget) {
	if l == nil || target == nil {
		return
	}
	target.Name = sanitizeSegment(target.Name)
	for i, existing := range l.Targets {
		if existing != nil && existing.Name == target.Name {
			l.Targets[i] = target
			l.normalize()
			return
		}
	}
	l.Targets = append(l.Targets, target)
	l.normalize()
}

// LoadLockfile parses toy.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	return lock, nil
}

// WriteLockfile serialises the lockfile back to disk, refreshing metadata.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock.toDisk()); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	filtered := l.Targets[:0]
	for _, target := range l.Targets {
		if target == nil {
			continue
		}
		target.Name = sanitizeSegment(target.Name)
		target.Version = strings.TrimSpace(target.Version)
		target.Source = strings.TrimSpace(target.Source)
		target.Commit = strings.TrimSpace(target.Commit)
		target.Checksum = strings.TrimSpace(target.Checksum)
		filtered = append(filtered, target)
	}
	l.Targets = filtered
	sort.SliceStable(l.Targets, func(i, j int) bool {
		return l.Targets[i].Name < l.Targets[j].Name
	})
}

type lockfileDisk struct {
	Root      string           `yaml:"root"`
	Generated string           `yaml:"generated"`
	Tool      string           `yaml:"tool"`
	Targets   []lockfileTarget `yaml:"targets"`
}

type lockfileTarget struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Commit   string `yaml:"commit"`
	Checksum string `yaml:"checksum"`
}

func (l *Lockfile) toDisk() lockfileDisk {
	targets := make([]lockfileTarget, 0, len(l.Targets))
	for _, target := range l.Targets {
		targets = append(targets, lockfileTarget{
			Name:     target.Name,
			Version:  target.Version,
			Source:   target.Source,
			Commit:   target.Commit,
			Checksum: target.Checksum,
		})
	}
	return lockfileDisk{
		Root:      l.Root,
		Generated: l.Generated,
		Tool:      l.Tool,
		Targets:   targets,
	}
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{
		Root:      d.Root,
		Generated: strings.TrimSpace(d.Generated),
		Tool:      d.Tool,
		Targets:   make([]*LockedTarget, 0, len(d.Targets)),
	}
	for _, target := range d.Targets {
		lock.Targets = append(lock.Targets, &LockedTarget{
			Name:     target.Name,
			Version:  target.Version,
			Source:   target.Source,
			Commit:   target.Commit,
			Checksum: target.Checksum,
		})
	}
	lock.normalize()
	return lock
}
