package assessment

import (
	"strings"

	"github.com/trezcool/tathmini/core"
)

const mimePrefix = "application/vnd.nextthought."

// Item & sub-object mime types
const (
	MimeQuestion       = mimePrefix + "naquestion"
	MimeQuestionSet    = mimePrefix + "naquestionset"
	MimeAssignment     = mimePrefix + "assessment.assignment"
	MimeAssignmentPart = mimePrefix + "assessment.assignmentpart"
	MimeTextHint       = mimePrefix + "assessment.texthint"
	MimeHTMLHint       = mimePrefix + "assessment.htmlhint"
	MimeWordBank       = mimePrefix + "naqwordbank"
	MimeWordEntry      = mimePrefix + "naqwordentry"
	MimeRegEx          = mimePrefix + "naqregex"

	MimeUploadedFile           = mimePrefix + "assessment.uploadedfile"
	MimeModeledContentResponse = mimePrefix + "assessment.modeledcontentresponse"

	MimeQuestionSubmission    = mimePrefix + "assessment.questionsubmission"
	MimeQuestionSetSubmission = mimePrefix + "assessment.questionsetsubmission"
	MimeAssignmentSubmission  = mimePrefix + "assessment.assignmentsubmission"
	MimeAssessedPart          = mimePrefix + "assessment.assessedpart"
	MimeAssessedQuestion      = mimePrefix + "assessment.assessedquestion"
	MimeAssessedQuestionSet   = mimePrefix + "assessment.assessedquestionset"
	MimeAssessedAssignment    = mimePrefix + "assessment.assessedassignment"
)

type (
	PartKind     string
	SolutionKind string
)

// Part kinds
const (
	FreeResponsePart                 PartKind = "freeresponsepart"
	MathPart                         PartKind = "mathpart"
	SymbolicMathPart                 PartKind = "symbolicmathpart"
	NumericMathPart                  PartKind = "numericmathpart"
	MultipleChoicePart               PartKind = "multiplechoicepart"
	MultipleChoiceMultipleAnswerPart PartKind = "multiplechoicemultipleanswerpart"
	MatchingPart                     PartKind = "matchingpart"
	OrderingPart                     PartKind = "orderingpart"
	FillInTheBlankShortAnswerPart    PartKind = "fillintheblankshortanswerpart"
	FillInTheBlankWithWordBankPart   PartKind = "fillintheblankwithwordbankpart"
	FilePart                         PartKind = "filepart"
	ModeledContentPart               PartKind = "modeledcontentpart"
)

// Solution kinds
const (
	FreeResponseSolution                 SolutionKind = "freeresponsesolution"
	MathSolution                         SolutionKind = "mathsolution"
	LatexSymbolicMathSolution            SolutionKind = "latexsymbolicmathsolution"
	NumericMathSolution                  SolutionKind = "numericmathsolution"
	MultipleChoiceSolution               SolutionKind = "multiplechoicesolution"
	MultipleChoiceMultipleAnswerSolution SolutionKind = "multiplechoicemultipleanswersolution"
	MatchingSolution                     SolutionKind = "matchingsolution"
	OrderingSolution                     SolutionKind = "orderingsolution"
	FillInTheBlankShortAnswerSolution    SolutionKind = "fillintheblankshortanswersolution"
	FillInTheBlankWithWordBankSolution   SolutionKind = "fillintheblankwithwordbanksolution"
)

var (
	partClasses = map[PartKind]string{
		FreeResponsePart:                 "FreeResponsePart",
		MathPart:                         "MathPart",
		SymbolicMathPart:                 "SymbolicMathPart",
		NumericMathPart:                  "NumericMathPart",
		MultipleChoicePart:               "MultipleChoicePart",
		MultipleChoiceMultipleAnswerPart: "MultipleChoiceMultipleAnswerPart",
		MatchingPart:                     "MatchingPart",
		OrderingPart:                     "OrderingPart",
		FillInTheBlankShortAnswerPart:    "FillInTheBlankShortAnswerPart",
		FillInTheBlankWithWordBankPart:   "FillInTheBlankWithWordBankPart",
		FilePart:                         "FilePart",
		ModeledContentPart:               "ModeledContentPart",
	}

	solutionClasses = map[SolutionKind]string{
		FreeResponseSolution:                 "FreeResponseSolution",
		MathSolution:                         "MathSolution",
		LatexSymbolicMathSolution:            "LatexSymbolicMathSolution",
		NumericMathSolution:                  "NumericMathSolution",
		MultipleChoiceSolution:               "MultipleChoiceSolution",
		MultipleChoiceMultipleAnswerSolution: "MultipleChoiceMultipleAnswerSolution",
		MatchingSolution:                     "MatchingSolution",
		OrderingSolution:                     "OrderingSolution",
		FillInTheBlankShortAnswerSolution:    "FillInTheBlankShortAnswerSolution",
		FillInTheBlankWithWordBankSolution:   "FillInTheBlankWithWordBankSolution",
	}

	// solution kinds each part kind accepts
	partSolutions = map[PartKind][]SolutionKind{
		FreeResponsePart:                 {FreeResponseSolution},
		MathPart:                         {MathSolution, LatexSymbolicMathSolution, NumericMathSolution},
		SymbolicMathPart:                 {LatexSymbolicMathSolution, MathSolution},
		NumericMathPart:                  {NumericMathSolution},
		MultipleChoicePart:               {MultipleChoiceSolution},
		MultipleChoiceMultipleAnswerPart: {MultipleChoiceMultipleAnswerSolution},
		MatchingPart:                     {MatchingSolution},
		OrderingPart:                     {OrderingSolution},
		FillInTheBlankShortAnswerPart:    {FillInTheBlankShortAnswerSolution},
		FillInTheBlankWithWordBankPart:   {FillInTheBlankWithWordBankSolution},
	}
)

func (k PartKind) Valid() bool          { _, ok := partClasses[k]; return ok }
func (k PartKind) Class() string        { return partClasses[k] }
func (k PartKind) MimeType() string     { return mimePrefix + "assessment." + string(k) }
func (k SolutionKind) Valid() bool      { _, ok := solutionClasses[k]; return ok }
func (k SolutionKind) Class() string    { return solutionClasses[k] }
func (k SolutionKind) MimeType() string { return mimePrefix + "assessment." + string(k) }

// Accepts tells if a solution of kind sk can be attached to a part of kind k.
func (k PartKind) Accepts(sk SolutionKind) bool {
	for _, s := range partSolutions[k] {
		if s == sk {
			return true
		}
	}
	return false
}

// DefaultSolution is the solution kind authored content gets when it does not name one.
func (k PartKind) DefaultSolution() (SolutionKind, bool) {
	kinds := partSolutions[k]
	if len(kinds) == 0 {
		return "", false
	}
	return kinds[0], true
}

// ParsePartKind finds the part kind from its mime type, class name or short name (eg. "multiplechoice").
func ParsePartKind(mimeType, class string) (PartKind, error) {
	if k, ok := kindFromMime(mimeType); ok && PartKind(k).Valid() {
		return PartKind(k), nil
	}
	for kind, cls := range partClasses {
		if cls == class {
			return kind, nil
		}
	}
	if name := core.CleanString(mimeType, true); name != "" {
		if k := PartKind(name + "part"); k.Valid() {
			return k, nil
		}
		if k := PartKind(name); k.Valid() {
			return k, nil
		}
	}
	return "", core.NewInvalidValueError(mimeType+class, "unknown part type")
}

// ParseSolutionKind finds the solution kind from its mime type, class name or short name (eg. "multiplechoice").
func ParseSolutionKind(mimeType, class string) (SolutionKind, error) {
	if k, ok := kindFromMime(mimeType); ok && SolutionKind(k).Valid() {
		return SolutionKind(k), nil
	}
	for kind, cls := range solutionClasses {
		if cls == class {
			return kind, nil
		}
	}
	if name := core.CleanString(mimeType, true); name != "" {
		if k := SolutionKind(name + "solution"); k.Valid() {
			return k, nil
		}
		if k := SolutionKind(name); k.Valid() {
			return k, nil
		}
	}
	return "", core.NewInvalidValueError(mimeType+class, "unknown solution type")
}

func kindFromMime(mimeType string) (string, bool) {
	p := mimePrefix + "assessment."
	if strings.HasPrefix(mimeType, p) {
		return mimeType[len(p):], true
	}
	return "", false
}

// header is the type information written along every externalized object.
type header struct {
	Class    string `json:"Class,omitempty"`
	MimeType string `json:"MimeType,omitempty"`
}
