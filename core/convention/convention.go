// Package convention holds the key-mangling rules used for environment
// variable names: case conversion, glob matching and tree splitting.
package convention

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
)

// Words splits a key into lowercase words. Separators are any
// non-alphanumeric rune and lower-to-upper case transitions, so
// "DB_HOST", "dbHost" and "db-host" all yield [db host].
func Words(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// "fooBar" and the "P" in "HTTPServer" both start a new word.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// CamelCase converts "DB_HOST" to "dbHost".
func CamelCase(s string) string {
	words := Words(s)
	for i := 1; i < len(words); i++ {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, "")
}

// StartCase converts "DB_HOST" to "Db Host".
func StartCase(s string) string {
	words := Words(s)
	for i := range words {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, " ")
}

// EnvCase converts "dbHost" to "DB_HOST".
func EnvCase(s string) string {
	return strings.ToUpper(strings.Join(Words(s), "_"))
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Matcher reports whether a key matches a pattern.
type Matcher interface {
	Match(key string) bool
}

type regexpMatcher struct{ re *regexp.Regexp }

func (m regexpMatcher) Match(key string) bool { return m.re.MatchString(key) }

// Compile builds a Matcher from a glob string ("DB_*"), a *regexp.Regexp,
// a compiled glob.Glob, or an existing Matcher.
func Compile(pattern any) (Matcher, error) {
	switch p := pattern.(type) {
	case string:
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", p, err)
		}
		return g, nil
	case *regexp.Regexp:
		if p == nil {
			return nil, fmt.Errorf("nil pattern")
		}
		return regexpMatcher{re: p}, nil
	case glob.Glob:
		return p, nil
	case Matcher:
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported pattern type %T", pattern)
	}
}

// Filter returns the keys matching pattern, preserving their order.
func Filter(keys []string, pattern any) ([]string, error) {
	m, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if m.Match(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// SplitTree splits a key into path segments on sep, dropping empty ones.
// "DB__HOST" with sep "__" yields [DB HOST].
func SplitTree(key, sep string) []string {
	if sep == "" {
		return []string{key}
	}
	var parts []string
	for _, p := range strings.Split(key, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Tree nests a flat map by splitting keys on sep. rename, when non-nil, is
// applied to every path segment (CamelCase is a common choice). A key that
// is both a leaf and a branch is an error.
func Tree(flat map[string]any, sep string, rename func(string) string) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shorter keys first so leaves are placed before deeper conflicts are seen.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	root := make(map[string]any)
	for _, key := range keys {
		path := SplitTree(key, sep)
		if len(path) == 0 {
			continue
		}
		if rename != nil {
			for i := range path {
				path[i] = rename(path[i])
			}
		}

		node := root
		for _, seg := range path[:len(path)-1] {
			next, exists := node[seg]
			if !exists {
				child := make(map[string]any)
				node[seg] = child
				node = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("key %q: %q is already a value", key, seg)
			}
			node = child
		}

		leaf := path[len(path)-1]
		if _, exists := node[leaf]; exists {
			return nil, fmt.Errorf("key %q: %q is already defined", key, leaf)
		}
		node[leaf] = flat[key]
	}
	return root, nil
}
