package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project manifest looked up by the CLI.
const ManifestFileName = "toy.yml"

// Manifest represents the parsed contents of toy.yml.
type Manifest struct {
	Path        string
	Name        string
	Version     string
	Authors     []string
	Default     string
	Dump        []DumpKind
	Targets     map[string]*TargetSpec
	TargetOrder []string

	targetEntries []manifestTargetEntry
}

// TargetSpec describes a runnable entry point. Local targets set Main relative
// to the manifest; git targets set Git plus one of Rev, Tag or Branch, and Main
// is then a path inside the repository.
type TargetSpec struct {
	Name         string
	OriginalName string
	Main         string
	Git          string
	Rev          string
	Tag          string
	Branch       string
}

// IsGit reports whether the target's source lives in a git repository.
func (t *TargetSpec) IsGit() bool {
	return t != nil && t.Git != ""
}

type manifestTargetEntry struct {
	sanitized string
	spec      *TargetSpec
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var ErrNoTargets = errors.New("manifest: no targets defined")

// LoadManifest parses toy.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest, issues := raw.toManifest(absPath)
	if err := manifest.validate(issues); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate(issues []string) error {
	errs := ValidationError{Issues: issues}
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for i, author := range m.Authors {
		if author == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("authors[%d] must be a non-empty string", i))
		}
	}

	targetNames := make(map[string]string, len(m.targetEntries))
	for _, entry := range m.targetEntries {
		target := entry.spec
		if target == nil {
			continue
		}
		if other, exists := targetNames[entry.sanitized]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets %q and %q collide after sanitization", other, target.OriginalName))
		} else {
			targetNames[entry.sanitized] = target.OriginalName
		}
		errs.Issues = append(errs.Issues, target.validate()...)
	}

	if m.Default != "" {
		if _, ok := m.FindTarget(m.Default); !ok {
			errs.Issues = append(errs.Issues, fmt.Sprintf("default target %q is not defined", m.Default))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (t *TargetSpec) validate() []string {
	var errs []string
	if t.Main == "" {
		errs = append(errs, fmt.Sprintf("target %q requires a main entrypoint", t.OriginalName))
	}
	pins := 0
	for _, pin := range []string{t.Rev, t.Tag, t.Branch} {
		if pin != "" {
			pins++
		}
	}
	switch {
	case t.Git == "" && pins > 0:
		errs = append(errs, fmt.Sprintf("target %q sets rev, tag, or branch without git", t.OriginalName))
	case t.Git != "" && pins == 0:
		errs = append(errs, fmt.Sprintf("git target %q requires rev, tag, or branch", t.OriginalName))
	case pins > 1:
		errs = append(errs, fmt.Sprintf("target %q must set only one of rev, tag, or branch", t.OriginalName))
	}
	if t.Git != "" && filepath.IsAbs(t.Main) {
		errs = append(errs, fmt.Sprintf("git target %q main must be relative to the repository", t.OriginalName))
	}
	return errs
}

// DefaultTarget returns the target named by `default`, else the first target in
// manifest order.
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if m == nil {
		return nil, ErrNoTargets
	}
	if m.Default != "" {
		if target, ok := m.FindTarget(m.Default); ok {
			return target, nil
		}
		return nil, fmt.Errorf("manifest: default target %q is not defined", m.Default)
	}
	for _, entry := range m.targetEntries {
		if entry.spec != nil {
			return entry.spec, nil
		}
	}
	return nil, ErrNoTargets
}

// FindTarget looks up a target by sanitized or original name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	if m == nil {
		return nil, false
	}
	key := sanitizeSegment(strings.TrimSpace(name))
	if key != "" {
		if target, ok := m.Targets[key]; ok && target != nil {
			return target, true
		}
	}
	for _, entry := range m.targetEntries {
		if entry.spec == nil {
			continue
		}
		if strings.EqualFold(entry.spec.OriginalName, strings.TrimSpace(name)) {
			return entry.spec, true
		}
	}
	return nil, false
}

// GitTargets returns the git-sourced targets in manifest order.
func (m *Manifest) GitTargets() []*TargetSpec {
	if m == nil {
		return nil
	}
	var out []*TargetSpec
	for _, name := range m.TargetOrder {
		if target := m.Targets[name]; target.IsGit() {
			out = append(out, target)
		}
	}
	return out
}

type manifestFile struct {
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
	Authors stringList `yaml:"authors"`
	Default string     `yaml:"default"`
	Dump    stringList `yaml:"dump"`
	Targets targetMap  `yaml:"targets"`
}

type targetYAML struct {
	Main   string `yaml:"main"`
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name string
	spec *targetYAML
}

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		tm.items = nil
		return nil
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}
		entry := new(targetYAML)
		// A bare string is shorthand for `main: <path>`.
		if valueNode.Kind == yaml.ScalarNode {
			if err := valueNode.Decode(&entry.Main); err != nil {
				return fmt.Errorf("manifest: target %q: %w", key, err)
			}
		} else if err := valueNode.Decode(entry); err != nil {
			return fmt.Errorf("manifest: target %q: %w", key, err)
		}
		items = append(items, targetMapEntry{
			name: key,
			spec: entry,
		})
	}
	tm.items = items
	return nil
}

type stringList []string

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		out = append(out, strings.TrimSpace(item))
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		// Accept "tokens, ast" as well as a sequence.
		var items []string
		for _, part := range strings.Split(value.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		*l = stringList(items)
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, str)
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) (*Manifest, []string) {
	var issues []string
	targetCapacity := len(mf.Targets.items)
	result := &Manifest{
		Path:          path,
		Name:          sanitizeSegment(strings.TrimSpace(mf.Name)),
		Version:       strings.TrimSpace(mf.Version),
		Authors:       mf.Authors.Clone(),
		Default:       strings.TrimSpace(mf.Default),
		Targets:       make(map[string]*TargetSpec, targetCapacity),
		TargetOrder:   make([]string, 0, targetCapacity),
		targetEntries: make([]manifestTargetEntry, 0, targetCapacity),
	}

	dumps, err := ParseDumpKinds(mf.Dump.Clone())
	if err != nil {
		issues = append(issues, fmt.Sprintf("dump: %v", err))
	}
	result.Dump = dumps

	for _, item := range mf.Targets.items {
		target := item.spec
		if target == nil {
			continue
		}
		original := strings.TrimSpace(item.name)
		sanitized := sanitizeSegment(original)
		spec := &TargetSpec{
			Name:         sanitized,
			OriginalName: original,
			Main:         strings.TrimSpace(target.Main),
			Git:          strings.TrimSpace(target.Git),
			Rev:          strings.TrimSpace(target.Rev),
			Tag:          strings.TrimSpace(target.Tag),
			Branch:       strings.TrimSpace(target.Branch),
		}
		if _, exists := result.Targets[sanitized]; !exists {
			result.Targets[sanitized] = spec
			result.TargetOrder = append(result.TargetOrder, sanitized)
		}
		result.targetEntries = append(result.targetEntries, manifestTargetEntry{
			sanitized: sanitized,
			spec:      spec,
		})
	}
	return result, issues
}

// sanitizeSegment lowercases a name and maps '-' to '_' so that target and
// project names compare the same way regardless of spelling.
func sanitizeSegment(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ToLower(name)
}
