package script

import (
	"strings"
	"unicode"
)

// Split returns the statements of script in source order.
func Split(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
		quote rune // open literal delimiter, 0 outside literals
	)

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			// A doubled quote closes and reopens the literal.
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				cur.WriteRune('\n')
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				i++
			}
			i++ // past the closing '/', or past the end if unterminated
			cur.WriteRune(' ')
		case r == ';':
			stmts = appendStatement(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}

	return appendStatement(stmts, cur.String())
}

func appendStatement(stmts []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return stmts
	}
	return append(stmts, s)
}

// Keyword returns the leading keyword of a statement, upper-cased.
// Leading parentheses are skipped so "(SELECT 1)" reports SELECT.
// Returns "" for an empty statement.
func Keyword(stmt string) string {
	stmt = strings.TrimLeftFunc(stmt, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	end := strings.IndexFunc(stmt, func(r rune) bool {
		return !(unicode.IsLetter(r) || r == '_')
	})
	if end >= 0 {
		stmt = stmt[:end]
	}
	return strings.ToUpper(stmt)
}
