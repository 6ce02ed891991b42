package preview

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)```")

// ScanRenderable is a delimiter-aware variant of ExtractRenderable.
//
// It picks the fenced code block that declares App (when the text has fences), strips
// module syntax, and walks App's parameter list and body to their balanced closing
// delimiters, skipping strings, template literals and comments. Unfenced text is cut
// right after App's closing brace so trailing prose is dropped. When no balanced App
// declaration is found it returns ExtractRenderable(raw).
//
// Quotes are treated as ending at a newline, so an apostrophe in JSX text can only hide
// delimiters on its own line.
func ScanRenderable(raw string) string {
	block, fenced := selectBlock(raw)
	code := stripModuleSyntax(block)

	loc := appFunctionRe.FindStringIndex(code)
	if loc == nil {
		return ExtractRenderable(raw)
	}

	closeParen := matchDelim(code, loc[1]-1, '(', ')')
	if closeParen < 0 {
		return ExtractRenderable(raw)
	}
	rel := strings.IndexByte(code[closeParen:], '{')
	if rel < 0 {
		return ExtractRenderable(raw)
	}
	closeBrace := matchDelim(code, closeParen+rel, '{', '}')
	if closeBrace < 0 {
		return ExtractRenderable(raw)
	}

	if !fenced {
		code = code[:closeBrace+1]
	}
	return strings.TrimRight(code, " \t\r\n") + renderCall
}

// selectBlock returns the first fenced block declaring App, or raw when there is none.
func selectBlock(raw string) (string, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		if appFunctionRe.MatchString(m[1]) {
			return m[1], true
		}
	}
	return raw, false
}

// matchDelim returns the index of the delimiter closing the one at src[open], or -1.
func matchDelim(src string, open int, openCh, closeCh byte) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"':
			i = skipQuoted(src, i)
		case '`':
			if i = skipTemplate(src, i); i < 0 {
				return -1
			}
		case '/':
			if i+1 >= len(src) {
				continue
			}
			switch src[i+1] {
			case '/':
				i = skipLineComment(src, i)
			case '*':
				if i = skipBlockComment(src, i); i < 0 {
					return -1
				}
			}
		}
	}
	return -1
}

func skipQuoted(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q, '\n':
			return j
		}
	}
	return len(src) - 1
}

func skipTemplate(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '`':
			return j
		case '$':
			if j+1 < len(src) && src[j+1] == '{' {
				end := matchDelim(src, j+1, '{', '}')
				if end < 0 {
					return -1
				}
				j = end
			}
		}
	}
	return -1
}

func skipLineComment(src string, i int) int {
	if n := strings.IndexByte(src[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(src) - 1
}

func skipBlockComment(src string, i int) int {
	if n := strings.Index(src[i+2:], "*/"); n >= 0 {
		return i + 2 + n + 1
	}
	return -1
}
