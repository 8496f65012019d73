// Package locale negotiates the response language and holds the message
// catalog for user-facing status text.
package locale

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English catalog entry is the key itself.
const (
	UpToDate        = "Up to date!"
	GitUnavailable  = "Disabled (Git is unavailable)"
	SSHOrigin       = "Disabled (SSH origin)"
	NotCheckout     = "Disabled (not a git checkout)"
	Disabled        = "Disabled"
	UpstreamUnknown = "Unknown (no upstream branch)"
	CommitsBehind   = "%d commits behind"
	CommitsAhead    = "%d commits ahead"
)

var supported = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(supported)

func init() {
	mustSet := func(tag language.Tag, key string, msg ...catalog.Message) {
		if err := message.Set(tag, key, msg...); err != nil {
			panic(err)
		}
	}

	mustSet(language.English, CommitsBehind, plural.Selectf(1, "%d",
		"=1", "%d commit behind",
		plural.Other, "%d commits behind"))
	mustSet(language.English, CommitsAhead, plural.Selectf(1, "%d",
		"=1", "%d commit ahead",
		plural.Other, "%d commits ahead"))
	for _, key := range []string{UpToDate, GitUnavailable, SSHOrigin, NotCheckout, Disabled, UpstreamUnknown} {
		message.SetString(language.English, key, key)
	}

	mustSet(language.German, CommitsBehind, plural.Selectf(1, "%d",
		"=1", "%d Commit zurück",
		plural.Other, "%d Commits zurück"))
	mustSet(language.German, CommitsAhead, plural.Selectf(1, "%d",
		"=1", "%d Commit voraus",
		plural.Other, "%d Commits voraus"))
	message.SetString(language.German, UpToDate, "Auf dem neuesten Stand!")
	message.SetString(language.German, GitUnavailable, "Deaktiviert (Git ist nicht verfügbar)")
	message.SetString(language.German, SSHOrigin, "Deaktiviert (SSH-Origin)")
	message.SetString(language.German, NotCheckout, "Deaktiviert (kein Git-Checkout)")
	message.SetString(language.German, Disabled, "Deaktiviert")
	message.SetString(language.German, UpstreamUnknown, "Unbekannt (kein Upstream-Branch)")
}

// Supported returns the languages with a catalog
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the best supported language for an Accept-Language header
// value. Unparseable or empty input yields fallback.
func Match(acceptLanguage string, fallback language.Tag) language.Tag {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supported[idx]
}

// Parse resolves a configured language name, falling back to English
func Parse(name string) language.Tag {
	tag, err := language.Parse(name)
	if err != nil {
		return language.English
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[idx]
}

// Printer returns a message printer for tag
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
