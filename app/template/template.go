// Package template implements the placeholder engine used to materialize
// notification content: key extraction from {{key}} placeholders, JSON
// model flattening, and substitution.
package template

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var ErrTemplateNotFound = errors.New("template not found")
var ErrKeyMissing = errors.New("substitution key missing from model")

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Result is the outcome of a template lookup.
type Result struct {
	Found bool
	Body  string
	Keys  []string
}

// Mapper resolves a template id to its body and extracted keys.
type Mapper interface {
	GetContent(ctx context.Context, templateID string) (Result, error)
}

// ExtractKeys returns the distinct placeholder names referenced by a
// template body, in order of first appearance.
func ExtractKeys(body string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := m[1]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Substitute replaces every {{key}} occurrence in the body with the value
// looked up case-insensitively in the flattened model. A key absent from
// the model fails the whole substitution; a half-substituted document must
// never reach a recipient.
func Substitute(keys []string, model map[string]string, body string) (string, error) {
	out := body
	for _, key := range keys {
		value, ok := model[strings.ToLower(key)]
		if !ok {
			return "", errorKeyMissing(key)
		}
		token := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(key) + `\s*\}\}`)
		out = token.ReplaceAllLiteralString(out, value)
	}
	return out, nil
}

func errorKeyMissing(key string) error {
	return &keyMissingError{key: key}
}

type keyMissingError struct {
	key string
}

func (e *keyMissingError) Error() string {
	return "substitution key missing from model: " + e.key
}

func (e *keyMissingError) Unwrap() error { return ErrKeyMissing }
