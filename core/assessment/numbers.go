package assessment

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	latexFracRegex = regexp.MustCompile(`^([-+]?)\\[dt]?frac\{\s*([-+]?\d+(?:\.\d+)?)\s*\}\{\s*([-+]?\d+(?:\.\d+)?)\s*\}`)
	fractionRegex  = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
	decimalRegex   = regexp.MustCompile(`^[-+]?(?:\d{1,3}(?:,\d{3})+|\d*)(?:\.(\d+))?(?:[eE][-+]?\d+)?`)
	unitMacroRegex = regexp.MustCompile(`\\(?:text|mathrm|mbox|rm)\{([^}]*)\}`)
	wholeUnitMacro = regexp.MustCompile(`^\\(?:text|mathrm|mbox|rm)\{[^}]*\}$`)
	trailingMacro  = regexp.MustCompile(`\s*\\(?:text|mathrm|mbox|rm)\{[^}]*\}$`)
	mathDelimiters = [][2]string{{"$$", "$$"}, {"$", "$"}, {`\(`, `\)`}, {`\[`, `\]`}}

	floatTolerance = 1e-9
)

// number is a parsed numeric response.
type number struct {
	value    float64
	decimals int    // digits after the decimal point; -1 when not meaningful (fractions, exponents)
	rest     string // what follows the number, usually units
}

func stripMathDelimiters(s string) string {
	s = strings.TrimSpace(s)
	for _, d := range mathDelimiters {
		if len(s) >= len(d[0])+len(d[1]) && strings.HasPrefix(s, d[0]) && strings.HasSuffix(s, d[1]) {
			return strings.TrimSpace(s[len(d[0]) : len(s)-len(d[1])])
		}
	}
	return s
}

// parseNumber reads the number at the start of s.
// Supported forms: 1234.5, 1,234.5, 1.2e3, 3/4, \frac{3}{4}.
func parseNumber(s string) (number, bool) {
	s = stripMathDelimiters(s)

	if m := latexFracRegex.FindStringSubmatch(s); m != nil {
		return fraction(m[1]+m[2], m[3], s[len(m[0]):])
	}
	if m := fractionRegex.FindStringSubmatch(s); m != nil {
		return fraction(m[1], m[2], s[len(m[0]):])
	}

	loc := decimalRegex.FindStringSubmatchIndex(s)
	if loc == nil || loc[1] == 0 {
		return number{}, false
	}
	lit := s[:loc[1]]
	if strings.IndexFunc(lit, func(r rune) bool { return r >= '0' && r <= '9' }) < 0 {
		return number{}, false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(lit, ",", ""), 64)
	if err != nil {
		return number{}, false
	}
	n := number{value: val, rest: strings.TrimSpace(s[loc[1]:])}
	switch {
	case strings.ContainsAny(lit, "eE"):
		n.decimals = -1
	case loc[2] >= 0:
		n.decimals = loc[3] - loc[2]
	}
	return n, true
}

func fraction(num, denom, rest string) (number, bool) {
	a, err := strconv.ParseFloat(strings.TrimPrefix(num, "+"), 64)
	if err != nil {
		return number{}, false
	}
	b, err := strconv.ParseFloat(denom, 64)
	if err != nil || b == 0 {
		return number{}, false
	}
	return number{value: a / b, decimals: -1, rest: strings.TrimSpace(rest)}, true
}

func roundTo(val float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(val*p) / p
}

func floatsEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= floatTolerance*scale
}

// normalizeUnit removes the markup around a unit: `\text{cm}` -> `cm`, `\%` -> `%`.
func normalizeUnit(u string) string {
	u = stripMathDelimiters(u)
	u = unitMacroRegex.ReplaceAllString(u, "$1")
	u = strings.ReplaceAll(u, `\%`, "%")
	u = strings.ReplaceAll(u, `\ `, " ")
	u = strings.ReplaceAll(u, "{", "")
	u = strings.ReplaceAll(u, "}", "")
	return strings.Join(strings.Fields(u), " ")
}

// checkUnits tells if unit is acceptable:
//   - allowed == nil: any unit is accepted, but unit must look like one (see isUnitToken)
//   - allowed is empty: no unit may be given
//   - allowed contains "": unit is optional, but must be listed if given
//   - otherwise one of the allowed units is required
func checkUnits(unit string, allowed []string) bool {
	if allowed == nil {
		return isUnitToken(unit)
	}
	unit = normalizeUnit(unit)
	if unit == "" {
		if len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if normalizeUnit(a) == "" {
				return true
			}
		}
		return false
	}
	for _, a := range allowed {
		if a := normalizeUnit(a); a != "" && a == unit {
			return true
		}
	}
	return false
}

// isUnitToken tells if s, the text following a number, can be a unit: nothing, a percent sign,
// a \text{..} like macro, or a word starting with a letter and free of arithmetic.
func isUnitToken(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case s == "", s == "%", s == `\%`, wholeUnitMacro.MatchString(s):
		return true
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) && r != '°' {
		return false
	}
	return !strings.ContainsAny(s, "+=,<>\\")
}

// stripTrailingUnit removes what looks like a unit from the end of expr: a \text{..} like macro,
// a percent sign, or a unit word separated by a space from an expression ending in an operand.
func stripTrailingUnit(expr string) string {
	if loc := trailingMacro.FindStringIndex(expr); loc != nil && loc[0] > 0 {
		return strings.TrimSpace(expr[:loc[0]])
	}
	for _, pct := range []string{`\%`, "%"} {
		if strings.HasSuffix(expr, pct) && len(expr) > len(pct) {
			return strings.TrimSpace(strings.TrimSuffix(expr, pct))
		}
	}
	i := strings.LastIndexAny(expr, " \t")
	if i <= 0 {
		return expr
	}
	head, tail := strings.TrimSpace(expr[:i]), expr[i+1:]
	if head == "" || !isUnitToken(tail) {
		return expr
	}
	last, _ := utf8.DecodeLastRuneInString(head)
	if !unicode.IsDigit(last) && last != ')' && last != '}' {
		return expr
	}
	return head
}

// parseMeasure parses s as a number. With allowed == nil it may be followed by a unit, which is
// ignored; otherwise units must have been removed already.
func parseMeasure(s string, allowed []string) (number, bool) {
	n, ok := parseNumber(s)
	if !ok {
		return number{}, false
	}
	if allowed == nil {
		return n, isUnitToken(n.rest)
	}
	return n, n.rest == ""
}

// splitUnit separates a trailing unit from an expression.
// With allowed == nil anything that looks like a unit is removed. Otherwise the longest allowed
// unit is removed; ok is false when the units check fails.
func splitUnit(expr string, allowed []string) (string, bool) {
	expr = stripMathDelimiters(expr)
	if allowed == nil {
		return stripTrailingUnit(expr), true
	}
	best := ""
	for _, a := range allowed {
		a = normalizeUnit(a)
		if a == "" {
			continue
		}
		for _, form := range unitForms(a) {
			if len(form) > len(best) && strings.HasSuffix(expr, form) {
				best = form
			}
		}
	}
	if best == "" {
		return expr, checkUnits("", allowed)
	}
	return strings.TrimSpace(strings.TrimSuffix(expr, best)), true
}

// unitForms lists the ways a unit can be written in a math expression.
func unitForms(u string) []string {
	forms := []string{u, `\text{` + u + `}`, `\mathrm{` + u + `}`, `\mbox{` + u + `}`, `\rm{` + u + `}`}
	if u == "%" {
		forms = append(forms, `\%`)
	}
	return forms
}
