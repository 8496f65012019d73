package updater

import (
	"regexp"
	"strconv"
	"strings"
)

// Describe is the parsed output of `git describe --tags --always --long`
type Describe struct {
	Tag      string // nearest tag, empty when the repository has none
	Distance int    // commits since Tag
	Commit   string // abbreviated commit hash
	Dirty    bool
}

var (
	describeLongRe = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)$`)
	bareCommitRe   = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
)

// ParseDescribe parses git describe output. Both the --long form
// ("v1.2-3-gabc1234") and the short forms are accepted.
func ParseDescribe(s string) Describe {
	s = strings.TrimSpace(s)
	var d Describe
	if strings.HasSuffix(s, "-dirty") {
		d.Dirty = true
		s = strings.TrimSuffix(s, "-dirty")
	}

	if m := describeLongRe.FindStringSubmatch(s); m != nil {
		d.Tag = m[1]
		d.Distance, _ = strconv.Atoi(m[2])
		d.Commit = m[3]
		return d
	}
	if bareCommitRe.MatchString(s) {
		d.Commit = s
		return d
	}
	d.Tag = s
	return d
}

// Version renders a display version: the tag for a release build,
// "<tag>.dev+<commit>" for builds past the tag, "dev+<commit>" without tags.
func (d Describe) Version() string {
	if d.Tag == "" {
		if d.Commit == "" {
			return "dev"
		}
		return "dev+" + d.Commit
	}

	v := strings.TrimPrefix(d.Tag, "v")
	if d.Distance == 0 && !d.Dirty {
		return v
	}
	v += ".dev"
	if d.Distance > 0 && d.Commit != "" {
		v += "+" + d.Commit
	}
	return v
}
