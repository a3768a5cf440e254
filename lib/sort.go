package lib

import (
	"os"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collationLocale returns the locale that governs string collation, following
// the usual LC_ALL, LC_COLLATE, LANG precedence.
func collationLocale() string {
	for _, name := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// localeTag converts a POSIX locale name such as "en_US.UTF-8" to a BCP 47
// tag. The C and POSIX locales have no tag.
func localeTag(locale string) (language.Tag, bool) {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// LocaleLess returns a name comparison that follows the collation order of
// the current locale, or plain byte order in the C locale.
func LocaleLess() func(a, b string) bool {
	tag, ok := localeTag(collationLocale())
	if !ok {
		return func(a, b string) bool { return a < b }
	}
	c := collate.New(tag)
	return func(a, b string) bool {
		if r := c.CompareString(a, b); r != 0 {
			return r < 0
		}
		return a < b
	}
}
