package pkgmgr

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Requirement is one declared dependency: a package name plus the version
// clauses it must satisfy.
type Requirement struct {
	Name      string // normalized name
	Specifier string // text handed to the installer, e.g. "Flask>=2.0,<3"
	Clauses   []Clause
}

// Clause is a single comparison such as ">=2.0"
type Clause struct {
	Op      string
	Version string
}

func (c Clause) String() string {
	return c.Op + c.Version
}

var (
	nameRe     = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^\]]*\])?\s*(.*)$`)
	clauseRe   = regexp.MustCompile(`^(===|==|!=|~=|>=|<=|>|<)\s*(\S+)$`)
	separators = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName applies PEP 503 name normalization
func NormalizeName(name string) string {
	return strings.ToLower(separators.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// LoadRequirements reads declared dependencies from a requirements.txt style
// file, or from [project].dependencies when path names a pyproject.toml.
// A missing file is reported with an error satisfying errors.Is(err, fs.ErrNotExist).
func LoadRequirements(path string) ([]Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParsePyproject(data)
	}
	return ParseRequirements(bytes.NewReader(data))
}

// ParseRequirements parses requirements.txt content. Blank lines, comments
// and option lines (-r, -e, --index-url, ...) are skipped.
func ParseRequirements(r io.Reader) ([]Requirement, error) {
	var reqs []Requirement
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		req, err := ParseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	return reqs, nil
}

type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// ParsePyproject reads [project].dependencies from pyproject.toml content
func ParsePyproject(data []byte) ([]Requirement, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml: %w", err)
	}
	reqs := make([]Requirement, 0, len(doc.Project.Dependencies))
	for _, dep := range doc.Project.Dependencies {
		req, err := ParseRequirement(dep)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ParseRequirement parses a single PEP 508 style specifier. Environment
// markers are dropped; direct URL references keep only the name.
func ParseRequirement(s string) (Requirement, error) {
	spec := strings.TrimSpace(s)
	if i := strings.Index(spec, ";"); i >= 0 {
		spec = strings.TrimSpace(spec[:i])
	}

	m := nameRe.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, fmt.Errorf("invalid requirement %q", s)
	}

	req := Requirement{Name: NormalizeName(m[1]), Specifier: spec}
	rest := strings.TrimSpace(m[3])
	if strings.HasPrefix(rest, "@") {
		return req, nil
	}
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	if rest == "" {
		return req, nil
	}

	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cm := clauseRe.FindStringSubmatch(part)
		if cm == nil {
			return Requirement{}, fmt.Errorf("invalid version clause %q in %q", part, s)
		}
		req.Clauses = append(req.Clauses, Clause{Op: cm[1], Version: cm[2]})
	}
	return req, nil
}

// SatisfiedBy reports whether an installed version meets every clause.
// Installed pre-releases count like any other version. Versions or clauses
// that cannot be interpreted count as unsatisfied.
func (r Requirement) SatisfiedBy(installed string) bool {
	v, err := ParseVersion(installed)
	if err != nil {
		return false
	}
	for _, c := range r.Clauses {
		ok, err := c.Match(v)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Match evaluates the clause against v following the PEP 440 comparison
// rules, including wildcard and compatible-release forms.
func (c Clause) Match(v *Version) (bool, error) {
	if c.Op == "===" {
		return strings.EqualFold(c.Version, v.raw), nil
	}

	if strings.HasSuffix(c.Version, ".*") {
		if c.Op != "==" && c.Op != "!=" {
			return false, fmt.Errorf("wildcard not allowed with %s: %q", c.Op, c.Version)
		}
		prefix, err := ParseVersion(strings.TrimSuffix(c.Version, ".*"))
		if err != nil {
			return false, err
		}
		return prefix.isReleasePrefixOf(v) == (c.Op == "=="), nil
	}

	spec, err := ParseVersion(c.Version)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case "==":
		return spec.matchesExactly(v), nil
	case "!=":
		return !spec.matchesExactly(v), nil
	case ">=":
		return v.Compare(spec) >= 0, nil
	case "<=":
		return v.Compare(spec) <= 0, nil
	case ">":
		if v.Compare(spec) <= 0 {
			return false, nil
		}
		// >1.0 excludes 1.0.post1 and 1.0+local
		if v.sameRelease(spec) && ((v.Post >= 0 && spec.Post < 0) || len(v.Local) > 0) {
			return false, nil
		}
		return true, nil
	case "<":
		if v.Compare(spec) >= 0 {
			return false, nil
		}
		// <2.0 excludes 2.0rc1
		if v.sameRelease(spec) && v.IsPrerelease() && !spec.IsPrerelease() {
			return false, nil
		}
		return true, nil
	case "~=":
		if len(spec.Release) < 2 {
			return false, fmt.Errorf("~= requires at least two release segments: %q", c.Version)
		}
		if v.Compare(spec) < 0 {
			return false, nil
		}
		prefix := &Version{Epoch: spec.Epoch, Release: spec.Release[:len(spec.Release)-1], Post: -1, Dev: -1}
		return prefix.isReleasePrefixOf(v), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
