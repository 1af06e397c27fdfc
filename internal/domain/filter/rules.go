package filter

import (
	"regexp"
	"strings"
)

var ruleSplitter = regexp.MustCompile(`[\n,，]+`)

// Rule is a compiled block rule: a case-insensitive keyword or a
// case-insensitive regular expression.
type Rule struct {
	Keyword string
	Regex   *regexp.Regexp
}

func (r Rule) Matches(text string) bool {
	if r.Regex != nil {
		return r.Regex.MatchString(text)
	}
	return r.Keyword != "" && strings.Contains(strings.ToLower(text), strings.ToLower(r.Keyword))
}

// ParseRules splits a raw rule list on newlines and commas (ASCII and
// full-width), trims entries, drops blanks and removes duplicates keeping the
// first occurrence.
func ParseRules(raw string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range ruleSplitter.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// CompileRule reports false for blank rules and invalid regular expressions.
func CompileRule(rule string) (Rule, bool) {
	s := strings.TrimSpace(rule)
	if s == "" {
		return Rule{}, false
	}
	body, isRegex := regexBody(s)
	if !isRegex {
		return Rule{Keyword: s}, true
	}
	if body == "" {
		return Rule{}, false
	}
	re, err := regexp.Compile("(?i)" + body)
	if err != nil {
		return Rule{}, false
	}
	return Rule{Regex: re}, true
}

func regexBody(s string) (string, bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "regex:"):
		return strings.TrimSpace(s[len("regex:"):]), true
	case strings.HasPrefix(lower, "re:"):
		return strings.TrimSpace(s[len("re:"):]), true
	case len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/"):
		return strings.TrimSpace(s[1 : len(s)-1]), true
	}
	return "", false
}

func CompileRules(rules []string) []Rule {
	var out []Rule
	for _, r := range rules {
		if c, ok := CompileRule(r); ok {
			out = append(out, c)
		}
	}
	return out
}

func MatchesRule(text, rule string) bool {
	c, ok := CompileRule(rule)
	return ok && c.Matches(text)
}

// ShouldBlock reports whether any rule matches text. Blank text or an empty
// rule set never blocks.
func ShouldBlock(text string, rules []string) bool {
	if strings.TrimSpace(text) == "" || len(rules) == 0 {
		return false
	}
	return ShouldBlockCompiled(text, CompileRules(rules))
}

func ShouldBlockCompiled(text string, rules []Rule) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range rules {
		if r.Matches(text) {
			return true
		}
	}
	return false
}
