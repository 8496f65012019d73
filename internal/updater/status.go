package updater

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alarmdecoder/webconsole/internal/locale"
)

// Status is the snapshot of one component after a refresh
type Status struct {
	Name           string        `json:"name"`
	Enabled        bool          `json:"enabled"`
	DisabledReason string        `json:"disabled_reason,omitempty"`
	NeedsUpdate    bool          `json:"needs_update"`
	Branch         Value[string] `json:"branch"`
	LocalRevision  Value[string] `json:"local_revision"`
	RemoteRevision Value[string] `json:"remote_revision"`
	CommitsBehind  Value[int]    `json:"commits_behind"`
	CommitsAhead   Value[int]    `json:"commits_ahead"`
	DBRevision     Value[int64]  `json:"db_revision"`
	DBNewest       Value[int64]  `json:"db_newest_revision"`
	Requirements   []string      `json:"requirements_needed,omitempty"`
	Status         string        `json:"status"`
	CheckedAt      time.Time     `json:"checked_at"`
}

// Localize returns a copy with Status rendered for tag
func (s Status) Localize(tag language.Tag) Status {
	s.Status = StatusText(locale.Printer(tag), s)
	return s
}

// StatusText composes the human readable status line: the disabled reason,
// "Up to date!", or comma-joined behind/ahead clauses with behind first.
func StatusText(p *message.Printer, s Status) string {
	if !s.Enabled {
		reason := s.DisabledReason
		if reason == "" {
			reason = locale.Disabled
		}
		return p.Sprintf(reason)
	}
	if !s.CommitsBehind.Known && !s.CommitsAhead.Known {
		return p.Sprintf(locale.UpstreamUnknown)
	}

	var clauses []string
	if behind := s.CommitsBehind.Or(0); behind > 0 {
		clauses = append(clauses, p.Sprintf(locale.CommitsBehind, behind))
	}
	if ahead := s.CommitsAhead.Or(0); ahead > 0 {
		clauses = append(clauses, p.Sprintf(locale.CommitsAhead, ahead))
	}
	if len(clauses) == 0 {
		return p.Sprintf(locale.UpToDate)
	}
	return strings.Join(clauses, ", ")
}

func englishStatus(s Status) string {
	return StatusText(locale.Printer(language.English), s)
}
