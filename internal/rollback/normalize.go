package rollback

import "strings"

// Normalize collapses every run of whitespace into a single space and trims the result,
// so statements that were spread over several lines match single-line patterns.
func Normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// SplitStatements splits text on semicolons that are not inside single quotes, double
// quotes or a dollar-quoted body. Line comments (--) and block comments are dropped
// from the statements, so a quote inside a comment never opens a literal. Empty
// statements are dropped and the terminating semicolon is not kept.
func SplitStatements(text string) []string {
	var (
		out    []string
		cur    strings.Builder
		quote  byte
		dollar string
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			out = append(out, stmt)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case dollar != "":
			if strings.HasPrefix(text[i:], dollar) {
				cur.WriteString(dollar)
				i += len(dollar) - 1
				dollar = ""
				continue
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case strings.HasPrefix(text[i:], "--"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				i = len(text)
				continue
			}
			i += end
			c = '\n'
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
				continue
			}
			i += end + 3
			c = ' '
		case c == '\'' || c == '"':
			quote = c
		case c == '$':
			if tag := dollarTag(text[i:]); tag != "" {
				cur.WriteString(tag)
				dollar = tag
				i += len(tag) - 1
				continue
			}
		case c == ';':
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return out
}

// StripCommentLines drops lines that hold nothing but a -- comment.
func StripCommentLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// dollarTag returns the opening tag ($$ or $name$) at the start of s, if any.
func dollarTag(s string) string {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1]
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 1 && c >= '0' && c <= '9') {
			return ""
		}
	}
	return ""
}
