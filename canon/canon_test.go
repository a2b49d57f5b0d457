package canon

import "testing"

func TestCanonicalise_FullCleanup(t *testing.T) {
	// WHAT: One pass lowercases scheme/host, strips www., drops the
	// fragment, removes tracking params and sorts the rest.
	// WHY: This is the exact shape dedup keys rely on.
	got := Canonicalise("https://WWW.Example.com/path/?utm_source=x&b=2&a=1#frag")
	want := "https://example.com/path?a=1&b=2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalise_Idempotent(t *testing.T) {
	// WHAT: Canonicalising a canonical URL changes nothing.
	// WHY: Re-processing stored items must not shift their keys.
	inputs := []string{
		"https://WWW.Example.com/path/?utm_source=x&b=2&a=1#frag",
		"http://News.Site.com/a/b/",
		"https://example.com",
		"https://example.com/story?id=7&ref=tw",
		"not a url at all",
	}
	for _, in := range inputs {
		once := Canonicalise(in)
		twice := Canonicalise(once)
		if once != twice {
			t.Errorf("Canonicalise(%q): not idempotent: %q then %q", in, once, twice)
		}
	}
}

func TestCanonicalise_EmptyPathBecomesRoot(t *testing.T) {
	// WHAT: A bare host gains a root slash; non-root paths lose one.
	// WHY: example.com and example.com/ address the same resource.
	cases := []struct {
		input string
		want  string
	}{
		{"https://example.com", "https://example.com/"},
		{"https://example.com/", "https://example.com/"},
		{"https://example.com/news/", "https://example.com/news"},
	}
	for _, tc := range cases {
		if got := Canonicalise(tc.input); got != tc.want {
			t.Errorf("Canonicalise(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCanonicalise_FirstQueryValueWins(t *testing.T) {
	// WHAT: Repeated query keys collapse to the first value.
	// WHY: Trackers append duplicates; the first value addresses the page.
	got := Canonicalise("https://example.com/x?a=1&a=2")
	want := "https://example.com/x?a=1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalise_SessionAndAdParams(t *testing.T) {
	// WHAT: Session tokens and click IDs are stripped regardless of case.
	got := Canonicalise("https://example.com/x?PHPSESSID=abc&fbclid=z&q=nba")
	want := "https://example.com/x?q=nba"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalise_MalformedReturnedUnchanged(t *testing.T) {
	// WHAT: Unparseable and non-HTTP inputs pass through untouched.
	// WHY: Failing open keeps the item processable under exact-match dedup.
	inputs := []string{
		"http://%zz",
		"mailto:editor@example.com",
		"javascript:void(0)",
		"",
	}
	for _, in := range inputs {
		if got := Canonicalise(in); got != in {
			t.Errorf("Canonicalise(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestApplyCanonicalLink(t *testing.T) {
	// WHAT: A rel=canonical href resolves against the page URL and
	// supersedes it.
	got := ApplyCanonicalLink("https://example.com/x?utm_medium=y", "/story/42")
	want := "https://example.com/story/42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Absolute hrefs replace the page entirely.
	got = ApplyCanonicalLink("https://example.com/x", "https://cdn.example.com/story/42/")
	want = "https://cdn.example.com/story/42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Blank href falls back to the page URL.
	got = ApplyCanonicalLink("https://example.com/x/", "  ")
	want = "https://example.com/x"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsHTTP(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"https://example.com/a", true},
		{"http://example.com", true},
		{"ftp://example.com/a", false},
		{"mailto:x@example.com", false},
		{"/relative/path", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsHTTP(tc.input); got != tc.want {
			t.Errorf("IsHTTP(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://WWW.Example.com:8080/path"); got != "example.com:8080" {
		t.Errorf("got %q", got)
	}
	if got := Host("%%bad"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
