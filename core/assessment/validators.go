package assessment

import (
	"fmt"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/ntiid"
)

var (
	ntiidTag  = "ntiid"
	ntiidText = "invalid NTIID"

	partTypeTag  = "parttype"
	partTypeText = "unknown part type"

	solutionTypeTag  = "solutiontype"
	solutionTypeText = "solution type does not fit the part"

	solutionRangeTag  = "solutionrange"
	solutionRangeText = "solution refers to a missing choice, label or value"

	weightTag  = "weight"
	weightText = "weight must be between 0 and 1"

	regexTag  = "regex"
	regexText = "invalid pattern"

	blankTag  = "blank"
	blankText = "solution refers to a missing blank"

	wordRefTag  = "wordref"
	wordRefText = "solution refers to a word missing from the word bank"

	sameLenTag  = "samelen"
	sameLenText = "labels and values must have the same length"

	uniqueWIDTag  = "uniquewid"
	uniqueWIDText = "word ids must be unique"

	dateRangeTag  = "daterange"
	dateRangeText = "the ending must be after the beginning"
)

// RegisterValidators registers the assessment validation tags, struct validations and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(ntiidTag, ntiidValidation)
	core.RegisterCustomTranslation(validate, translator, ntiidTag, ntiidText)

	validate.RegisterStructValidation(partStructValidation, Part{})
	validate.RegisterStructValidation(questionStructValidation, Question{})
	validate.RegisterStructValidation(wordBankStructValidation, WordBank{})
	validate.RegisterStructValidation(assignmentStructValidation, Assignment{})

	for tag, text := range map[string]string{
		partTypeTag:      partTypeText,
		solutionTypeTag:  solutionTypeText,
		solutionRangeTag: solutionRangeText,
		weightTag:        weightText,
		regexTag:         regexText,
		blankTag:         blankText,
		wordRefTag:       wordRefText,
		sameLenTag:       sameLenText,
		uniqueWIDTag:     uniqueWIDText,
		dateRangeTag:     dateRangeText,
	} {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// Custom Validators

func ntiidValidation(fl validator.FieldLevel) bool {
	return ntiid.Valid(fl.Field().String())
}

// partStructValidation checks that the part's fields and solutions are consistent with its kind.
func partStructValidation(sl validator.StructLevel) {
	p := sl.Current().Interface().(Part)
	if !p.Kind.Valid() {
		sl.ReportError(p.Kind, "MimeType", "Kind", partTypeTag, "")
		return
	}

	switch p.Kind {
	case MultipleChoicePart, MultipleChoiceMultipleAnswerPart:
		if len(p.Choices) == 0 {
			sl.ReportError(p.Choices, "choices", "Choices", "required", "")
		}
	case MatchingPart, OrderingPart:
		if len(p.Labels) == 0 {
			sl.ReportError(p.Labels, "labels", "Labels", "required", "")
		}
		if len(p.Values) == 0 {
			sl.ReportError(p.Values, "values", "Values", "required", "")
		}
		if len(p.Labels) != len(p.Values) {
			sl.ReportError(p.Values, "values", "Values", sameLenTag, "")
		}
	}

	blanks := make(map[string]bool)
	for _, b := range p.Blanks() {
		blanks[b] = true
	}
	for i := range p.Solutions {
		validateSolution(sl, &p, &p.Solutions[i], i, blanks)
	}
}

func validateSolution(sl validator.StructLevel, p *Part, sol *Solution, i int, blanks map[string]bool) {
	field := fmt.Sprintf("solutions[%d]", i)
	structField := fmt.Sprintf("Solutions[%d]", i)
	report := func(tag string) {
		sl.ReportError(sol, field, structField, tag, "")
	}

	if !p.Kind.Accepts(sol.Kind) {
		report(solutionTypeTag)
		return
	}
	if sol.Weight < 0 || sol.Weight > 1 {
		report(weightTag)
	}

	inRange := func(idx, n int) bool { return idx >= 0 && idx < n }
	switch sol.Kind {
	case MultipleChoiceSolution:
		if !inRange(sol.Index, len(p.Choices)) {
			report(solutionRangeTag)
		}
	case MultipleChoiceMultipleAnswerSolution:
		for _, idx := range sol.Indices {
			if !inRange(idx, len(p.Choices)) {
				report(solutionRangeTag)
				break
			}
		}
	case MatchingSolution, OrderingSolution:
		for k, v := range sol.Mapping {
			label, err := strconv.Atoi(k)
			if err != nil || !inRange(label, len(p.Labels)) || !inRange(v, len(p.Values)) {
				report(solutionRangeTag)
				break
			}
		}
	case FillInTheBlankShortAnswerSolution:
		for blank, rx := range sol.Patterns {
			if _, err := rx.compile(); err != nil {
				report(regexTag)
				break
			}
			if len(blanks) > 0 && !blanks[blank] {
				report(blankTag)
				break
			}
		}
	case FillInTheBlankWithWordBankSolution:
		for blank := range sol.Words {
			if len(blanks) > 0 && !blanks[blank] {
				report(blankTag)
				break
			}
		}
	}
}

// questionStructValidation checks that word bank solutions refer to words of the part's or the question's bank.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	for i := range q.Parts {
		p := &q.Parts[i]
		if p.Kind != FillInTheBlankWithWordBankPart {
			continue
		}
		bank := p.WordBank.Merge(q.WordBank)
		for j := range p.Solutions {
			if !wordsInBank(p.Solutions[j].Words, bank) {
				sl.ReportError(
					p.Solutions[j],
					fmt.Sprintf("parts[%d].solutions[%d]", i, j),
					fmt.Sprintf("Parts[%d].Solutions[%d]", i, j),
					wordRefTag, "",
				)
			}
		}
	}
}

func wordsInBank(words map[string][]string, bank *WordBank) bool {
	for _, wids := range words {
		for _, wid := range wids {
			if !bank.Contains(wid) {
				return false
			}
		}
	}
	return true
}

func wordBankStructValidation(sl validator.StructLevel) {
	wb := sl.Current().Interface().(WordBank)
	if dups := wb.duplicates(); len(dups) > 0 {
		sl.ReportError(wb.Entries, "entries", "Entries", uniqueWIDTag, "")
	}
}

func assignmentStructValidation(sl validator.StructLevel) {
	a := sl.Current().Interface().(Assignment)
	if a.AvailableBeginning != nil && a.AvailableEnding != nil && !a.AvailableEnding.After(*a.AvailableBeginning) {
		sl.ReportError(a.AvailableEnding, "available_for_submission_ending", "AvailableEnding", dateRangeTag, "")
	}
}
