package verifier

import "fmt"

type scanState int

const (
	stateCode scanState = iota
	stateString
	stateLineComment
	stateBlockComment
)

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

type opener struct {
	r    rune
	line int
}

// CheckBalance verifies that (), [] and {} are balanced in src. String
// literals quoted with ', " or ` (with backslash escapes) and comments
// introduced by //, # or /* */ are skipped. It returns "" when balanced, or a
// description of the first problem found.
func CheckBalance(src string) string {
	var (
		stack     []opener
		state     = stateCode
		quote     rune
		quoteLine int
		blockLine int
		line      = 1
		escaped   bool
	)

	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				state = stateCode
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}

		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateCode
				i++
			}

		case stateCode:
			switch {
			case c == '\'' || c == '"' || c == '`':
				state, quote, quoteLine = stateString, c, line
			case c == '#':
				state = stateLineComment
			case c == '/' && next == '/':
				state = stateLineComment
				i++
			case c == '/' && next == '*':
				state, blockLine = stateBlockComment, line
				i++
			case c == '(' || c == '[' || c == '{':
				stack = append(stack, opener{r: c, line: line})
			case closers[c] != 0:
				if len(stack) == 0 {
					return fmt.Sprintf("unbalanced delimiters: unexpected %q on line %d", c, line)
				}
				top := stack[len(stack)-1]
				if top.r != closers[c] {
					return fmt.Sprintf("unbalanced delimiters: %q on line %d does not match %q opened on line %d", c, line, top.r, top.line)
				}
				stack = stack[:len(stack)-1]
			}
		}

		if c == '\n' {
			line++
		}
	}

	switch state {
	case stateString:
		return fmt.Sprintf("unterminated string literal opened with %q on line %d", quote, quoteLine)
	case stateBlockComment:
		return fmt.Sprintf("unterminated block comment opened on line %d", blockLine)
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Sprintf("unbalanced delimiters: %q opened on line %d is never closed", top.r, top.line)
	}
	return ""
}
