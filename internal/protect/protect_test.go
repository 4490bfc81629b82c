package protect

import "testing"

func TestIsProtected(t *testing.T) {
	tests := []struct {
		name     string
		branch   string
		patterns []string
		want     bool
	}{
		{"empty list", "main", nil, false},
		{"exact match", "main", []string{"main"}, true},
		{"exact is case-sensitive", "Main", []string{"main"}, false},
		{"exact no partial", "main2", []string{"main"}, false},
		{"trailing wildcard", "release/1.0", []string{"release/*"}, true},
		{"trailing wildcard is pure prefix", "release/", []string{"release/*"}, true},
		{"trailing wildcard without slash", "release", []string{"release*"}, true},
		{"trailing wildcard no match", "hotfix/1", []string{"release/*"}, false},
		{"trailing wildcard is case-sensitive", "Release/1.0", []string{"release/*"}, false},
		{"bare star protects all", "anything", []string{"*"}, true},
		{"inner glob", "feature-123-keep", []string{"feature-*-keep"}, true},
		{"inner glob anchored at end", "feature-123-keep-not", []string{"feature-*-keep"}, false},
		{"inner glob anchored at start", "x-feature-1-keep", []string{"feature-*-keep"}, false},
		{"leading glob", "team/main", []string{"*/main"}, true},
		{"second pattern matches", "develop", []string{"main", "develop"}, true},
		{"no pattern matches", "bugfix-123", []string{"main", "develop", "release/*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProtected(tt.branch, tt.patterns); got != tt.want {
				t.Errorf("IsProtected(%q, %v) = %v, want %v", tt.branch, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestIsProtected_NamespaceRoot(t *testing.T) {
	patterns := []string{"release/*"}
	if !IsProtected("release/1.0", patterns) {
		t.Error("release/1.0 should be protected")
	}
	if !IsProtected("release", patterns) {
		t.Error("bare release should be protected by release/*")
	}
	if IsProtected("releases", patterns) {
		t.Error("releases should not be protected by release/*")
	}
	if IsProtected("rel", patterns) {
		t.Error("rel should not be protected by release/*")
	}
}

func TestGlobToRegexp_EscapesMetacharacters(t *testing.T) {
	tests := []struct {
		glob  string
		input string
		want  bool
	}{
		{"v1.*.x", "v1.2.x", true},
		{"v1.*.x", "v1a2bx", false},
		{"a+*", "a+b", true},
		{"a+*", "aab", false},
		{"(x)*[y]", "(x)-[y]", true},
		{"(x)*[y]", "x-y", false},
		{"^*$", "^mid$", true},
		{"a|*", "a|b", true},
		{"a|*", "b", false},
		{"foo?*", "foo?bar", true},
		{"foo?*", "fobar", false},
		{`back\*slash`, `back\-slash`, true},
		{"**", "", true},
		{"a*b*c", "a-b-c", true},
		{"a*b*c", "a-c", false},
	}
	for _, tt := range tests {
		t.Run(tt.glob+"/"+tt.input, func(t *testing.T) {
			if got := GlobToRegexp(tt.glob).MatchString(tt.input); got != tt.want {
				t.Errorf("GlobToRegexp(%q) match %q = %v, want %v", tt.glob, tt.input, got, tt.want)
			}
		})
	}
}

func TestIsProtectedRemote(t *testing.T) {
	patterns := []string{"main", "release/*"}
	tests := []struct {
		name string
		want bool
	}{
		{"origin/main", true},
		{"upstream/release/2.0", true},
		{"origin/feature", false},
		{"main", false},
	}
	for _, tt := range tests {
		if got := IsProtectedRemote(tt.name, patterns); got != tt.want {
			t.Errorf("IsProtectedRemote(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
