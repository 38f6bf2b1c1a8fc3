package textpatch

import "strings"

// FindDefinition locates the C definition introduced by signature and returns
// the byte span [start, end) from the signature through its closing brace.
// Braces inside string literals, character literals and comments are ignored.
func FindDefinition(content, signature string) (start, end int, ok bool) {
	if signature == "" {
		return 0, 0, false
	}

	from := 0
	for {
		idx := strings.Index(content[from:], signature)
		if idx < 0 {
			return 0, 0, false
		}
		start = from + idx
		open, isDecl := firstBody(content, start+len(signature))
		if open < 0 {
			return 0, 0, false
		}
		if isDecl {
			from = start + len(signature)
			continue
		}
		closing := matchBrace(content, open)
		if closing < 0 {
			return 0, 0, false
		}
		return start, closing + 1, true
	}
}

// firstBody returns the index of the first "{" at or after pos, and whether a
// ";" was seen first (the signature belongs to a declaration).
func firstBody(content string, pos int) (int, bool) {
	for i := pos; i < len(content); i++ {
		switch content[i] {
		case '{':
			return i, false
		case ';':
			return i, true
		}
	}
	return -1, false
}

// matchBrace scans from the opening brace at open and returns the index of
// the brace that brings nesting depth back to zero, or -1.
func matchBrace(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch c := content[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'':
			i = skipQuoted(content, i, c)
		case '/':
			if i+1 >= len(content) {
				continue
			}
			switch content[i+1] {
			case '/':
				nl := strings.IndexByte(content[i:], '\n')
				if nl < 0 {
					return -1
				}
				i += nl
			case '*':
				cl := strings.Index(content[i+2:], "*/")
				if cl < 0 {
					return -1
				}
				i += 2 + cl + 1
			}
		}
	}
	return -1
}

// skipQuoted returns the index of the quote closing the literal that opens at
// i. An unterminated literal runs to the end of the content.
func skipQuoted(content string, i int, quote byte) int {
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			j++
		case quote:
			return j
		case '\n':
			// C literals cannot span lines; resync on the next line.
			return j
		}
	}
	return len(content)
}
