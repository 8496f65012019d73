package pkgmgr

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRequirements(t *testing.T) {
	content := `# core
Flask>=2.0,<3.0
jinja2 == 3.1.2   # pinned

-r other.txt
--index-url https://example.invalid/simple
-e git+https://example.invalid/repo.git#egg=thing
requests[security] ~= 2.28
pyserial; sys_platform != "win32"
alarmdecoder @ https://example.invalid/ad.tar.gz
`
	reqs, err := ParseRequirements(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseRequirements: %v", err)
	}

	want := []struct {
		name    string
		spec    string
		clauses int
	}{
		{"flask", "Flask>=2.0,<3.0", 2},
		{"jinja2", "jinja2 == 3.1.2", 1},
		{"requests", "requests[security] ~= 2.28", 1},
		{"pyserial", "pyserial", 0},
		{"alarmdecoder", "alarmdecoder @ https://example.invalid/ad.tar.gz", 0},
	}
	if len(reqs) != len(want) {
		t.Fatalf("expected %d requirements, got %d: %+v", len(want), len(reqs), reqs)
	}
	for i, w := range want {
		if reqs[i].Name != w.name {
			t.Errorf("req %d: expected name %q, got %q", i, w.name, reqs[i].Name)
		}
		if reqs[i].Specifier != w.spec {
			t.Errorf("req %d: expected specifier %q, got %q", i, w.spec, reqs[i].Specifier)
		}
		if len(reqs[i].Clauses) != w.clauses {
			t.Errorf("req %d: expected %d clauses, got %d", i, w.clauses, len(reqs[i].Clauses))
		}
	}
}

func TestParseRequirements_Invalid(t *testing.T) {
	_, err := ParseRequirements(strings.NewReader("flask 2.0\n"))
	if err == nil {
		t.Fatal("expected error for malformed clause")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line number in error, got %q", err.Error())
	}
}

func TestParsePyproject(t *testing.T) {
	data := []byte(`
[project]
name = "webapp"
dependencies = [
  "Flask>=2.0",
  "sqlalchemy==1.4.*",
]
`)
	reqs, err := ParsePyproject(data)
	if err != nil {
		t.Fatalf("ParsePyproject: %v", err)
	}
	if len(reqs) != 2 || reqs[0].Name != "flask" || reqs[1].Name != "sqlalchemy" {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
}

func TestLoadRequirements(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRequirements(filepath.Join(dir, "requirements.txt"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected fs.ErrNotExist, got %v", err)
		}
	})

	t.Run("requirements.txt", func(t *testing.T) {
		path := filepath.Join(dir, "requirements.txt")
		if err := os.WriteFile(path, []byte("six\n"), 0644); err != nil {
			t.Fatal(err)
		}
		reqs, err := LoadRequirements(path)
		if err != nil || len(reqs) != 1 || reqs[0].Name != "six" {
			t.Fatalf("unexpected result: %+v, %v", reqs, err)
		}
	})

	t.Run("pyproject.toml", func(t *testing.T) {
		path := filepath.Join(dir, "pyproject.toml")
		if err := os.WriteFile(path, []byte("[project]\ndependencies = [\"six>=1.0\"]\n"), 0644); err != nil {
			t.Fatal(err)
		}
		reqs, err := LoadRequirements(path)
		if err != nil || len(reqs) != 1 || reqs[0].Name != "six" {
			t.Fatalf("unexpected result: %+v, %v", reqs, err)
		}
	})
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Flask":            "flask",
		"Flask_SQLAlchemy": "flask-sqlalchemy",
		"zope.interface":   "zope-interface",
		"a--b__c..d":       "a-b-c-d",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1", "1"},
		{"1.2.3.4", "1.2.3.4"},
		{"v2.0", "2.0"},
		{"1!2.0", "1!2.0"},
		{"1.0a1", "1.0a1"},
		{"1.0.beta.2", "1.0b2"},
		{"1.0rc1", "1.0rc1"},
		{"1.0.dev3", "1.0.dev3"},
		{"1.0.post1", "1.0.post1"},
		{"1.0-1", "1.0.post1"},
		{"1.0+Ubuntu-1", "1.0+ubuntu.1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseVersion(tt.input)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", tt.input, err)
			}
			if v.String() != tt.expected {
				t.Errorf("ParseVersion(%q) = %q, want %q", tt.input, v.String(), tt.expected)
			}
		})
	}

	if _, err := ParseVersion("not-a-version"); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestVersionCompare(t *testing.T) {
	// ascending PEP 440 order
	ordered := []string{
		"1.0.dev1", "1.0a1.dev1", "1.0a1", "1.0a2", "1.0b1", "1.0rc1",
		"1.0", "1.0+local.1", "1.0.post1.dev1", "1.0.post1", "1.0.1", "1.0.1.1", "1.1", "1!0.5",
	}
	for i := 0; i+1 < len(ordered); i++ {
		a, err := ParseVersion(ordered[i])
		if err != nil {
			t.Fatal(err)
		}
		b, err := ParseVersion(ordered[i+1])
		if err != nil {
			t.Fatal(err)
		}
		if a.Compare(b) >= 0 || b.Compare(a) <= 0 {
			t.Errorf("expected %s < %s", ordered[i], ordered[i+1])
		}
	}

	a, _ := ParseVersion("1.0")
	b, _ := ParseVersion("1.0.0")
	if a.Compare(b) != 0 {
		t.Error("expected 1.0 == 1.0.0")
	}
}

func TestSatisfiedBy(t *testing.T) {
	tests := []struct {
		spec      string
		installed string
		want      bool
	}{
		{"flask", "0.1", true},
		{"flask>=2.0", "2.3.1", true},
		{"flask>=2.0", "1.1.4", false},
		{"flask>=2.0,<3", "3.0.0", false},
		{"flask==2.0.1", "2.0.1", true},
		{"flask==2.0.1", "2.0.2", false},
		{"flask==2.0.*", "2.0.9", true},
		{"flask==2.0.*", "2.1.0", false},
		{"flask!=2.0.*", "2.1.0", true},
		{"flask!=2.0.*", "2.0.3", false},
		{"flask!=1.0", "1.0.0", false},
		{"flask~=2.2", "2.9", true},
		{"flask~=2.2", "3.0", false},
		{"flask~=2.2", "2.1", false},
		{"flask~=1.4.5", "1.4.9", true},
		{"flask~=1.4.5", "1.5.0", false},
		{"flask~=0.4", "0.9.1", true},
		{"flask===1.0", "1.0", true},
		{"flask>1.0", "garbage", false},
		// installed pre-releases are accepted like the installer does
		{"flask>=1.0", "2.0.0rc1", true},
		{"flask>=1.0", "2.0.dev3", true},
		{"flask<2.0", "2.0rc1", false},
		{"flask<2.0", "1.9rc1", true},
		// four-segment releases keep every segment
		{"pkg==1.2.3.4", "1.2.3.4", true},
		{"pkg==1.2.3.4", "1.2.3.5", false},
		{"pkg!=1.2.3.4", "1.2.3.5", true},
		{"pkg<1.2.3.4", "1.2.3.3", true},
		{"pkg~=1.2.3.4", "1.2.3.9", true},
		{"pkg~=1.2.3.4", "1.2.4", false},
		// post, local and epoch handling
		{"pkg>1.0", "1.0.post1", false},
		{"pkg>=1.0", "1.0.post1", true},
		{"pkg==1.0.post1", "1.0", false},
		{"pkg==1.0", "1.0+ubuntu.1", true},
		{"pkg>1.0", "1.0+ubuntu.1", false},
		{"pkg>=2.0", "1!1.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec+"@"+tt.installed, func(t *testing.T) {
			req, err := ParseRequirement(tt.spec)
			if err != nil {
				t.Fatalf("ParseRequirement(%q): %v", tt.spec, err)
			}
			if got := req.SatisfiedBy(tt.installed); got != tt.want {
				t.Errorf("%s satisfied by %s = %v, want %v", tt.spec, tt.installed, got, tt.want)
			}
		})
	}
}

func TestDetectScope(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "/opt/venv")
	if got := DetectScope(); got != ScopeEnvironment {
		t.Errorf("expected environment scope inside a virtualenv, got %q", got)
	}

	t.Setenv("VIRTUAL_ENV", "")
	want := ScopeUser
	if os.Geteuid() == 0 {
		want = ScopeSystem
	}
	if got := DetectScope(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestIndex(t *testing.T) {
	idx := Index([]Package{{Name: "Flask_Login", Version: "0.6.2"}})
	if idx["flask-login"] != "0.6.2" {
		t.Errorf("expected normalized key, got %v", idx)
	}
}
