package updater

import "testing"

func TestParseDescribe(t *testing.T) {
	tests := []struct {
		input       string
		wantVersion string
		wantCommit  string
	}{
		// Release tags
		{"v0.7", "0.7", ""},
		{"v1.2.3-0-gabc1234", "1.2.3", "abc1234"},

		// Builds past the tag
		{"v0.7-1-gf9e7962", "0.7.dev+f9e7962", "f9e7962"},
		{"v0.7.0-5-gabc1234", "0.7.0.dev+abc1234", "abc1234"},

		// Dirty working tree
		{"v0.7-dirty", "0.7.dev", ""},
		{"v0.7-0-gf9e7962-dirty", "0.7.dev", "f9e7962"},
		{"v0.7-1-gf9e7962-dirty", "0.7.dev+f9e7962", "f9e7962"},

		// Pre-release tags
		{"v0.7.0-rc1-3-gabc1234", "0.7.0-rc1.dev+abc1234", "abc1234"},
		{"v0.7.0-beta.1-2-g1234567", "0.7.0-beta.1.dev+1234567", "1234567"},

		// No tags in the repository
		{"f9e7962", "dev+f9e7962", "f9e7962"},
		{"", "dev", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d := ParseDescribe(tt.input)
			if got := d.Version(); got != tt.wantVersion {
				t.Errorf("ParseDescribe(%q).Version() = %q, want %q", tt.input, got, tt.wantVersion)
			}
			if d.Commit != tt.wantCommit {
				t.Errorf("ParseDescribe(%q).Commit = %q, want %q", tt.input, d.Commit, tt.wantCommit)
			}
		})
	}
}
