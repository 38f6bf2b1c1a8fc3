package textpatch

import (
	"regexp"
	"strings"
)

// Transform rewrites file content. It returns ok=false, and the content
// unchanged, when the target does not have the shape the transform expects.
type Transform interface {
	Apply(content string) (string, bool)
}

// Literal replaces the first exact occurrence of Old with New.
type Literal struct {
	Old string
	New string
}

// Apply implements Transform.
func (l Literal) Apply(content string) (string, bool) {
	if l.Old == "" || !strings.Contains(content, l.Old) {
		return content, false
	}
	return strings.Replace(content, l.Old, l.New, 1), true
}

// InsertAfter returns a Literal that keeps anchor and appends text after it.
func InsertAfter(anchor, text string) Literal {
	return Literal{Old: anchor, New: anchor + text}
}

// Anchored replaces everything between Begin and the first End that follows
// it. Both markers are kept.
type Anchored struct {
	Begin string
	End   string
	Block string
}

// Apply implements Transform.
func (a Anchored) Apply(content string) (string, bool) {
	if a.Begin == "" || a.End == "" {
		return content, false
	}
	start := strings.Index(content, a.Begin)
	if start < 0 {
		return content, false
	}
	inner := start + len(a.Begin)
	end := strings.Index(content[inner:], a.End)
	if end < 0 {
		return content, false
	}
	end += inner
	return content[:inner] + a.Block + content[end:], true
}

// Balanced replaces a whole brace-delimited definition. The span starts at
// Signature and ends at the brace closing the first "{" after it.
// Occurrences of Signature followed by ";" before any "{" are treated as
// declarations and skipped.
type Balanced struct {
	Signature   string
	Replacement string
}

// Apply implements Transform.
func (b Balanced) Apply(content string) (string, bool) {
	start, end, ok := FindDefinition(content, b.Signature)
	if !ok {
		return content, false
	}
	return content[:start] + b.Replacement + content[end:], true
}

// Regex substitutes at most Max matches of Pattern. Replacement may use
// $1-style submatch references. Max <= 0 is treated as 1.
type Regex struct {
	Pattern     *regexp.Regexp
	Replacement string
	Max         int
}

// Apply implements Transform.
func (r Regex) Apply(content string) (string, bool) {
	if r.Pattern == nil {
		return content, false
	}
	limit := r.Max
	if limit <= 0 {
		limit = 1
	}
	matches := r.Pattern.FindAllStringSubmatchIndex(content, limit)
	if len(matches) == 0 {
		return content, false
	}

	var sb strings.Builder
	sb.Grow(len(content))
	last := 0
	for _, m := range matches {
		sb.WriteString(content[last:m[0]])
		sb.Write(r.Pattern.ExpandString(nil, r.Replacement, content, m))
		last = m[1]
	}
	sb.WriteString(content[last:])
	return sb.String(), true
}

// Sequence applies transforms in order. If any of them does not apply, the
// original content is returned with ok=false.
type Sequence []Transform

// Apply implements Transform.
func (s Sequence) Apply(content string) (string, bool) {
	if len(s) == 0 {
		return content, false
	}
	out := content
	for _, t := range s {
		next, ok := t.Apply(out)
		if !ok {
			return content, false
		}
		out = next
	}
	return out, true
}
