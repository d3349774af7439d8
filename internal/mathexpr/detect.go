package mathexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// minExprLen is the shortest sanitized expression worth evaluating.
const minExprLen = 3

// ReplyFormat renders an evaluated result.
const ReplyFormat = "Boom! The answer is %s! High-speed math! ⚡"

// Sanitize lowercases raw chat text and keeps only the characters the
// evaluator understands. The word sqrt survives as a function symbol.
func Sanitize(raw string) string {
	text := strings.ReplaceAll(strings.ToLower(raw), "sqrt", string(sqrtSym))
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' || r == sqrtSym || strings.ContainsRune("+-*/^().", r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeMath reports whether raw contains an explicit operator or the
// sqrt function. Plain numbers in prose do not qualify.
func LooksLikeMath(raw string) bool {
	return strings.ContainsAny(raw, "+-*/^") || strings.Contains(strings.ToLower(raw), "sqrt")
}

// TryEvaluate extracts and evaluates an arithmetic expression from chat text.
// It reports false when the text is not math or the expression is invalid,
// so the caller can fall through to intent detection.
func TryEvaluate(raw string) (string, bool) {
	if !LooksLikeMath(raw) {
		return "", false
	}
	expr := Sanitize(raw)
	if len([]rune(expr)) < minExprLen || !strings.ContainsAny(expr, "+-*/^"+string(sqrtSym)) {
		return "", false
	}
	v, err := Eval(expr)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf(ReplyFormat, FormatNumber(v)), true
}

// FormatNumber prints v in its shortest exact decimal form.
func FormatNumber(v float64) string {
	if v == 0 {
		// avoid "-0"
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
