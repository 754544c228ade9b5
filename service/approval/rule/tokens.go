package rule

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	eqCode
	neCode
	geCode
	leCode
	gtCode
	ltCode
	andCode
	numberCode
	stringCode
	boolCode
)

// Token definitions. Two-character operators precede their one-character
// prefixes so the longest candidate wins.
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	eqToken         = parsly.NewToken(eqCode, "==", matcher.NewFragment("=="))
	neToken         = parsly.NewToken(neCode, "!=", matcher.NewFragment("!="))
	geToken         = parsly.NewToken(geCode, ">=", matcher.NewFragment(">="))
	leToken         = parsly.NewToken(leCode, "<=", matcher.NewFragment("<="))
	gtToken         = parsly.NewToken(gtCode, ">", matcher.NewByte('>'))
	ltToken         = parsly.NewToken(ltCode, "<", matcher.NewByte('<'))
	andToken        = parsly.NewToken(andCode, "&&", matcher.NewFragment("&&"))
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	stringToken     = parsly.NewToken(stringCode, "String", &stringMatcher{})
	boolToken       = parsly.NewToken(boolCode, "Bool", &boolMatcher{})
)

// identifierMatcher matches payload field names, with dots for nested fields.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		c := input[i]
		if isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// numberMatcher matches integer and decimal literals with an optional sign.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	matched := 0
	if input[pos] == '-' {
		matched++
	}
	digits := 0
	dots := 0
	for i := pos + matched; i < size; i++ {
		c := input[i]
		if isDigit(c) {
			digits++
			matched++
			continue
		}
		if c == '.' && dots == 0 && digits > 0 {
			dots++
			matched++
			continue
		}
		break
	}
	if digits == 0 {
		return 0
	}
	return matched
}

// stringMatcher matches single or double quoted literals, including the quotes.
type stringMatcher struct{}

func (m *stringMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	quote := input[pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == quote {
			return i - pos + 1
		}
	}
	return 0
}

// boolMatcher matches the true/false keywords.
type boolMatcher struct{}

func (m *boolMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	for _, keyword := range []string{"true", "false"} {
		end := pos + len(keyword)
		if end > size {
			continue
		}
		if string(input[pos:end]) != keyword {
			continue
		}
		// keyword must not run into an identifier
		if end < size && (isLetter(input[end]) || isDigit(input[end]) || input[end] == '_') {
			continue
		}
		return len(keyword)
	}
	return 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
