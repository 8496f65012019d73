package pkgmgr

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var pep440Re = regexp.MustCompile(`(?i)^v?(?:(\d+)!)?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?` +
	`(?:[-_.]?(post|rev|r)[-_.]?(\d*)|-(\d+))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Version is a parsed PEP 440 version. Every release segment is kept. The
// pre-release part is held as a semver pre-release, which gives the
// alpha < beta < rc ordering.
type Version struct {
	Epoch   uint64
	Release []uint64
	Post    int64 // -1 when absent
	Dev     int64 // -1 when absent
	Local   []string

	pre *semver.Version // 0.0.0-<label>.<n>
	raw string
}

// ParseVersion parses a PEP 440 version, accepting the usual alternative
// spellings (1.0-1, 1.0.alpha.2, v2.0).
func ParseVersion(s string) (*Version, error) {
	raw := strings.TrimSpace(s)
	m := pep440Re.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}

	v := &Version{Post: -1, Dev: -1, raw: raw}
	if m[1] != "" {
		epoch, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch in %q", s)
		}
		v.Epoch = epoch
	}
	for _, seg := range strings.Split(m[2], ".") {
		n, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid release segment in %q", s)
		}
		v.Release = append(v.Release, n)
	}

	if m[3] != "" {
		label := "rc"
		switch strings.ToLower(m[3]) {
		case "a", "alpha":
			label = "alpha"
		case "b", "beta":
			label = "beta"
		}
		pre, err := semver.StrictNewVersion(fmt.Sprintf("0.0.0-%s.%d", label, number(m[4])))
		if err != nil {
			return nil, fmt.Errorf("invalid pre-release in %q: %w", s, err)
		}
		v.pre = pre
	}
	if m[5] != "" || m[7] != "" {
		v.Post = number(m[6] + m[7])
	}
	if m[8] != "" {
		v.Dev = number(m[9])
	}
	if m[10] != "" {
		v.Local = strings.Split(separators.ReplaceAllString(strings.ToLower(m[10]), "."), ".")
	}
	return v, nil
}

func number(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// IsPrerelease reports a pre-release or development release
func (v *Version) IsPrerelease() bool {
	return v.pre != nil || v.Dev >= 0
}

// String returns the normalized form, e.g. 1.0rc1.post2.dev3+ubuntu.1
func (v *Version) String() string {
	var b strings.Builder
	if v.Epoch > 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, n := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(n, 10))
	}
	if v.pre != nil {
		label, n, _ := strings.Cut(v.pre.Prerelease(), ".")
		switch label {
		case "alpha":
			label = "a"
		case "beta":
			label = "b"
		}
		b.WriteString(label + n)
	}
	if v.Post >= 0 {
		fmt.Fprintf(&b, ".post%d", v.Post)
	}
	if v.Dev >= 0 {
		fmt.Fprintf(&b, ".dev%d", v.Dev)
	}
	if len(v.Local) > 0 {
		b.WriteString("+" + strings.Join(v.Local, "."))
	}
	return b.String()
}

// Compare orders versions by PEP 440: release, then pre-release, then
// post-release, then development release, then local label.
func (v *Version) Compare(o *Version) int {
	if c := cmp.Compare(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := cmp.Compare(v.preRank(), o.preRank()); c != 0 {
		return c
	}
	if v.pre != nil && o.pre != nil {
		if c := v.pre.Compare(o.pre); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(v.Post, o.Post); c != 0 {
		return c
	}
	if c := cmp.Compare(devRank(v.Dev), devRank(o.Dev)); c != 0 {
		return c
	}
	return compareLocal(v.Local, o.Local)
}

// preRank places 1.0.dev1 before 1.0a1, and both before 1.0
func (v *Version) preRank() int {
	switch {
	case v.pre == nil && v.Post < 0 && v.Dev >= 0:
		return -1
	case v.pre != nil:
		return 0
	default:
		return 1
	}
}

func devRank(dev int64) int64 {
	if dev < 0 {
		return math.MaxInt64
	}
	return dev
}

func compareRelease(a, b []uint64) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// compareLocal sorts no label first; numeric segments sort after
// alphanumeric ones.
func compareLocal(a, b []string) int {
	for i := 0; i < min(len(a), len(b)); i++ {
		x, xerr := strconv.ParseUint(a[i], 10, 64)
		y, yerr := strconv.ParseUint(b[i], 10, 64)
		var c int
		switch {
		case xerr == nil && yerr == nil:
			c = cmp.Compare(x, y)
		case xerr == nil:
			c = 1
		case yerr == nil:
			c = -1
		default:
			c = strings.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func (v *Version) sameRelease(o *Version) bool {
	return v.Epoch == o.Epoch && compareRelease(v.Release, o.Release) == 0
}

// matchesExactly is ==: a spec without a local label ignores the local
// label of the candidate.
func (v *Version) matchesExactly(candidate *Version) bool {
	if len(v.Local) == 0 && len(candidate.Local) > 0 {
		public := *candidate
		public.Local = nil
		candidate = &public
	}
	return candidate.Compare(v) == 0
}

// isReleasePrefixOf is the ==1.4.* match: the candidate's release,
// zero-padded, starts with v's release.
func (v *Version) isReleasePrefixOf(candidate *Version) bool {
	if v.Epoch != candidate.Epoch {
		return false
	}
	for i, n := range v.Release {
		var c uint64
		if i < len(candidate.Release) {
			c = candidate.Release[i]
		}
		if c != n {
			return false
		}
	}
	return true
}
