package assessment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/trezcool/tathmini/core"
)

// Grader tells if a response is accepted by a solution of a part.
// It returns an InvalidValueError when the response cannot be converted to the shape the part expects.
type Grader func(part *Part, sol *Solution, resp Response) (bool, error)

var (
	graders = map[SolutionKind]Grader{
		FreeResponseSolution:                 StringEqualityGrader,
		MathSolution:                         MathGrader,
		LatexSymbolicMathSolution:            SymbolicMathGrader,
		NumericMathSolution:                  NumericGrader,
		MultipleChoiceSolution:               MultipleChoiceGrader,
		MultipleChoiceMultipleAnswerSolution: MultipleAnswerGrader,
		MatchingSolution:                     ConnectingGrader,
		OrderingSolution:                     ConnectingGrader,
		FillInTheBlankShortAnswerSolution:    ShortAnswerGrader,
		FillInTheBlankWithWordBankSolution:   WordBankGrader,
	}

	textReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
		"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "−", "-",
		" ", " ",
	)

	latexReplacer = strings.NewReplacer(
		`\dfrac`, `\frac`, `\tfrac`, `\frac`,
		`\cdot`, "*", `\times`, "*",
		`\qquad`, "", `\quad`, "",
		`\,`, "", `\;`, "", `\:`, "", `\!`, "", `\ `, "", "~", "",
	)
	latexLeftRightRegex = regexp.MustCompile(`\\(?:left|right)([^A-Za-z]|$)`)
	latexSingleRegex    = regexp.MustCompile(`\{(\S)\}`)
)

// GraderFor returns the grader of the given solution kind.
func GraderFor(kind SolutionKind) (Grader, bool) {
	g, ok := graders[kind]
	return g, ok
}

func normalizeText(s string) string {
	s = textReplacer.Replace(strings.ToLower(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".")
}

func normalizeLatex(s string) string {
	s = stripMathDelimiters(s)
	s = latexLeftRightRegex.ReplaceAllString(s, "$1")
	s = latexReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), "")
	for prev := ""; prev != s; {
		prev = s
		s = latexSingleRegex.ReplaceAllString(s, "$1")
	}
	return s
}

// EqualityGrader accepts a response equal to the solution text, ignoring surrounding whitespace.
func EqualityGrader(_ *Part, sol *Solution, resp Response) (bool, error) {
	text, err := asText(resp)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(text) == strings.TrimSpace(sol.Text), nil
}

// StringEqualityGrader compares texts ignoring case, extra whitespace, typographic quotes & dashes and a trailing period.
func StringEqualityGrader(_ *Part, sol *Solution, resp Response) (bool, error) {
	text, err := asText(resp)
	if err != nil {
		return false, err
	}
	return normalizeText(text) == normalizeText(sol.Text), nil
}

// NumericGrader compares numbers, honoring the solution's allowed units and precision.
func NumericGrader(_ *Part, sol *Solution, resp Response) (bool, error) {
	text, err := asText(resp)
	if err != nil {
		return false, err
	}
	got, ok := parseNumber(text)
	if !ok || !checkUnits(got.rest, sol.AllowedUnits) {
		return false, nil
	}
	want, ok := parseNumber(sol.Text)
	if !ok {
		return false, nil
	}
	return numbersEqual(got, want), nil
}

func numbersEqual(got, want number) bool {
	val := got.value
	if want.decimals > 0 {
		val = roundTo(val, want.decimals)
	}
	return floatsEqual(val, want.value)
}

// SymbolicMathGrader compares normalized LaTeX expressions, falling back to a numeric comparison
// when both sides are numbers. Without allowed units a trailing unit is ignored.
func SymbolicMathGrader(_ *Part, sol *Solution, resp Response) (bool, error) {
	text, err := asText(resp)
	if err != nil {
		return false, err
	}
	if sol.AllowedUnits == nil && normalizeLatex(text) == normalizeLatex(sol.Text) {
		return true, nil
	}
	got, ok := splitUnit(text, sol.AllowedUnits)
	if !ok {
		return false, nil
	}
	want, _ := splitUnit(sol.Text, sol.AllowedUnits)

	if normalizeLatex(got) == normalizeLatex(want) {
		return true, nil
	}
	gotNum, ok1 := parseMeasure(got, sol.AllowedUnits)
	wantNum, ok2 := parseMeasure(want, sol.AllowedUnits)
	return ok1 && ok2 && numbersEqual(gotNum, wantNum), nil
}

// MathGrader accepts an exact match first, then grades symbolically.
func MathGrader(part *Part, sol *Solution, resp Response) (bool, error) {
	if ok, err := EqualityGrader(part, sol, resp); ok || err != nil {
		if ok && sol.AllowedUnits != nil {
			// an exact match still has to satisfy the units
			return SymbolicMathGrader(part, sol, resp)
		}
		return ok, err
	}
	return SymbolicMathGrader(part, sol, resp)
}

// choiceIndex maps a response value, either an index or the text of a choice, to a choice index.
func choiceIndex(part *Part, val string) (int, bool) {
	val = strings.TrimSpace(val)
	if idx, err := strconv.Atoi(val); err == nil {
		return idx, idx >= 0 && idx < len(part.Choices)
	}
	return textIndex(part.Choices, val)
}

func textIndex(texts []string, val string) (int, bool) {
	val = normalizeText(val)
	for i, t := range texts {
		if normalizeText(t) == val {
			return i, true
		}
	}
	return -1, false
}

// MultipleChoiceGrader accepts the choice (by index or text) of the solution. Unknown choices are wrong.
func MultipleChoiceGrader(part *Part, sol *Solution, resp Response) (bool, error) {
	text, err := asText(resp)
	if err != nil {
		return false, err
	}
	idx, ok := choiceIndex(part, text)
	return ok && idx == sol.Index, nil
}

// MultipleAnswerGrader accepts exactly the set of choices of the solution.
func MultipleAnswerGrader(part *Part, sol *Solution, resp Response) (bool, error) {
	list, err := asList(resp)
	if err != nil {
		return false, err
	}
	got := make(map[int]bool, len(list))
	for _, val := range list {
		idx, ok := choiceIndex(part, val)
		if !ok {
			return false, nil
		}
		got[idx] = true
	}
	want := make(map[int]bool, len(sol.Indices))
	for _, idx := range sol.Indices {
		want[idx] = true
	}
	if len(got) != len(want) {
		return false, nil
	}
	for idx := range want {
		if !got[idx] {
			return false, nil
		}
	}
	return true, nil
}

// connectIndex maps a label or value, given by index or text, to its index.
func connectIndex(texts []string, val string) (int, error) {
	val = strings.TrimSpace(val)
	if idx, err := strconv.Atoi(val); err == nil {
		if idx < 0 || idx >= len(texts) {
			return 0, core.NewInvalidValueError(val, "index out of range")
		}
		return idx, nil
	}
	if idx, ok := textIndex(texts, val); ok {
		return idx, nil
	}
	return 0, core.NewInvalidValueError(val, "unknown label or value")
}

// ConnectingGrader grades matching and ordering parts: the response must map every label to the
// same value as the solution. Ordering responses may be lists (position = label index).
func ConnectingGrader(part *Part, sol *Solution, resp Response) (bool, error) {
	dict, err := asDict(resp)
	if err != nil {
		return false, err
	}
	got := make(map[int]int, len(dict))
	for k, v := range dict {
		label, err := connectIndex(part.Labels, k)
		if err != nil {
			return false, err
		}
		value, err := connectIndex(part.Values, v)
		if err != nil {
			return false, err
		}
		got[label] = value
	}

	if len(got) != len(sol.Mapping) {
		return false, nil
	}
	for _, k := range sortedKeys(sol.Mapping) {
		label, err := strconv.Atoi(k)
		if err != nil {
			return false, nil
		}
		if value, ok := got[label]; !ok || value != sol.Mapping[k] {
			return false, nil
		}
	}
	return true, nil
}

// ShortAnswerGrader accepts a response when every blank of the solution matches its pattern.
func ShortAnswerGrader(_ *Part, sol *Solution, resp Response) (bool, error) {
	dict, err := asDict(resp)
	if err != nil {
		return false, err
	}
	if len(sol.Patterns) == 0 {
		return false, nil
	}
	for blank, rx := range sol.Patterns {
		val, ok := dict[blank]
		if !ok {
			return false, nil
		}
		matched, err := rx.Match(val)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

// WordBankGrader accepts a response when every blank of the solution holds one of its words.
// Words are given by wid or by their text. Unique banks reject a word used twice.
func WordBankGrader(part *Part, sol *Solution, resp Response) (bool, error) {
	dict, err := asDict(resp)
	if err != nil {
		return false, err
	}
	if len(sol.Words) == 0 {
		return false, nil
	}

	wids := make(map[string]string, len(dict))
	used := make(map[string]bool, len(dict))
	for blank, val := range dict {
		wid := val
		if part.WordBank != nil {
			if resolved := part.WordBank.Resolve(val); resolved != "" {
				wid = resolved
			}
			if part.WordBank.Unique && wid != "" {
				if used[wid] {
					return false, core.NewInvalidValueError(val, "word %q can only be used once", wid)
				}
				used[wid] = true
			}
		}
		wids[blank] = wid
	}

	for blank, accepted := range sol.Words {
		wid, ok := wids[blank]
		if !ok || !containsString(accepted, wid) {
			return false, nil
		}
	}
	return true, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
