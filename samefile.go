package deadwood

import "strings"

// usedInModule reports whether local occurs as an identifier at least twice
// in src, ignoring `export { ... }` clauses. The declaration accounts for
// one occurrence. This is a textual scan, not a scope analysis; comments and
// strings count.
func usedInModule(src []byte, local string) bool {
	if local == "" || local == "default" {
		return false
	}
	text := stripExportClauses(string(src))
	count := 0
	for i := 0; ; {
		j := strings.Index(text[i:], local)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(local)
		if (start == 0 || !isIdentByte(text[start-1])) && (end == len(text) || !isIdentByte(text[end])) {
			count++
			if count >= 2 {
				return true
			}
		}
		i = end
	}
	return false
}

// stripExportClauses blanks out the braces of `export {` ... `}` so
// re-listing a name for export does not count as a use.
func stripExportClauses(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for {
		i := firstIndex(text, "export {", "export type {")
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			b.WriteString(text[:i])
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteByte(' ')
		text = text[i+end+1:]
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c >= 0x80
}

// firstIndex returns the lowest index of any of subs in s, or -1.
func firstIndex(s string, subs ...string) int {
	first := -1
	for _, sub := range subs {
		if i := strings.Index(s, sub); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	return first
}
