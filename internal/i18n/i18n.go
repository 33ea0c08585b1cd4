// Package i18n holds the localized display strings of the landing page,
// keyed by dotted paths such as "calculator.services.smm.name".
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// Russian comes first: it is the fallback language.
var supported = []language.Tag{language.Russian, language.English}

type Store struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]any
}

func Load() (*Store, error) {
	const operation = "i18n.Load"

	s := &Store{
		tags:     supported,
		matcher:  language.NewMatcher(supported),
		messages: make(map[language.Tag]map[string]any, len(supported)),
	}

	for _, tag := range supported {
		data, err := localesFS.ReadFile(path.Join("locales", tag.String()+".json"))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read %s: %w", operation, tag, err)
		}
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%s: failed to parse %s: %w", operation, tag, err)
		}
		flat := make(map[string]any)
		flatten("", tree, flat)
		s.messages[tag] = flat
	}
	return s, nil
}

func flatten(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// Default is the fallback language.
func (s *Store) Default() language.Tag {
	return s.tags[0]
}

// Match picks the best supported language for values such as a "lang"
// query parameter or an Accept-Language header.
func (s *Store) Match(prefs ...string) language.Tag {
	var clean []string
	for _, p := range prefs {
		if strings.TrimSpace(p) != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return s.Default()
	}
	_, index := language.MatchStrings(s.matcher, clean...)
	return s.tags[index]
}

// T returns the string for key, falling back to the default language and
// then to the key itself.
func (s *Store) T(tag language.Tag, key string) string {
	if v, ok := s.lookup(tag, key).(string); ok {
		return v
	}
	return key
}

// Lookup is T without the key fallback.
func (s *Store) Lookup(tag language.Tag, key string) (string, bool) {
	v, ok := s.lookup(tag, key).(string)
	return v, ok
}

// List returns a localized string array, nil if the key is missing.
func (s *Store) List(tag language.Tag, key string) []string {
	raw, ok := s.lookup(tag, key).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

func (s *Store) lookup(tag language.Tag, key string) any {
	if v, ok := s.messages[tag][key]; ok {
		return v
	}
	return s.messages[s.Default()][key]
}
