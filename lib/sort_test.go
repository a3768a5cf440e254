package lib

import "testing"

func TestLocaleTag(t *testing.T) {
	cases := []struct {
		locale string
		ok     bool
		tag    string
	}{
		{"", false, ""},
		{"C", false, ""},
		{"POSIX", false, ""},
		{"C.UTF-8", false, ""},
		{"en_US.UTF-8", true, "en-US"},
		{"de_DE@euro", true, "de-DE"},
		{"sv", true, "sv"},
	}
	for _, tc := range cases {
		tag, ok := localeTag(tc.locale)
		if ok != tc.ok {
			t.Errorf("localeTag(%q) ok = %v, want %v", tc.locale, ok, tc.ok)
			continue
		}
		if ok && tag.String() != tc.tag {
			t.Errorf("localeTag(%q) = %s, want %s", tc.locale, tag, tc.tag)
		}
	}
}

func TestCollationLocale_precedence(t *testing.T) {
	t.Setenv("LANG", "fr_FR.UTF-8")
	t.Setenv("LC_COLLATE", "")
	t.Setenv("LC_ALL", "")
	if got := collationLocale(); got != "fr_FR.UTF-8" {
		t.Errorf("collationLocale() = %q, want LANG", got)
	}
	t.Setenv("LC_COLLATE", "de_DE.UTF-8")
	if got := collationLocale(); got != "de_DE.UTF-8" {
		t.Errorf("collationLocale() = %q, want LC_COLLATE", got)
	}
	t.Setenv("LC_ALL", "C")
	if got := collationLocale(); got != "C" {
		t.Errorf("collationLocale() = %q, want LC_ALL", got)
	}
}

func TestLocaleLess_cLocaleIsByteOrder(t *testing.T) {
	t.Setenv("LC_ALL", "C")
	less := LocaleLess()
	if !less("B", "a") || less("a", "B") {
		t.Error("C locale should sort upper case before lower case")
	}
}

func TestLocaleLess_languageCollation(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")
	less := LocaleLess()
	if !less("a", "B") || less("B", "a") {
		t.Error("en_US should sort a before B")
	}
	if less("x", "x") {
		t.Error("less must be irreflexive")
	}
}
