package assessment

import (
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

const questionJSON = `{
  "Class": "Question",
  "MimeType": "application/vnd.nextthought.naquestion",
  "NTIID": "tag:nextthought.com,2011-10:Tathmini-NAQ-physics.q1",
  "content": "Answer the following",
  "wordbank": {"entries": [{"wid": "1", "word": "up"}, {"wid": "2", "word": "down"}], "unique": true},
  "parts": [
    {
      "MimeType": "application/vnd.nextthought.assessment.numericmathpart",
      "content": "Length of the rod?",
      "hints": ["think", {"MimeType": "application/vnd.nextthought.assessment.htmlhint", "value": "<b>measure</b>"}],
      "solutions": [
        {"Class": "NumericMathSolution", "value": 3.10, "allowed_units": ["cm", ""]},
        {"Class": "NumericMathSolution", "value": 31, "weight": 0.5, "allowed_units": []}
      ]
    },
    {
      "Class": "FillInTheBlankShortAnswerPart",
      "input": "<input type=\"blankfield\" name=\"001\"/>",
      "solutions": [
        {"Class": "FillInTheBlankShortAnswerSolution", "value": {"001": "dogs?", "002": {"Class": "RegEx", "pattern": "cat", "solution": "cat"}}}
      ]
    },
    {
      "MimeType": "application/vnd.nextthought.assessment.fillintheblankwithwordbankpart",
      "solutions": [
        {"MimeType": "application/vnd.nextthought.assessment.fillintheblankwithwordbanksolution", "value": {"001": "1", "002": ["1", "2"]}}
      ]
    },
    {
      "Class": "MatchingPart",
      "labels": ["a", "b"],
      "values": ["x", "y"],
      "solutions": [{"Class": "MatchingSolution", "value": {"0": 1, "1": "0"}}]
    }
  ]
}`

func TestDecodeItem_question(t *testing.T) {
	item, err := DecodeItem([]byte(questionJSON))
	if err != nil {
		t.Fatalf("DecodeItem() error = %v", err)
	}
	q, ok := item.(*Question)
	if !ok {
		t.Fatalf("DecodeItem() = %T, want *Question", item)
	}
	if len(q.Parts) != 4 {
		t.Fatalf("len(Parts) = %d, want 4", len(q.Parts))
	}
	if q.WordBank == nil || !q.WordBank.Unique || len(q.WordBank.Entries) != 2 {
		t.Errorf("WordBank = %+v", q.WordBank)
	}

	numeric := q.Parts[0]
	if numeric.Kind != NumericMathPart {
		t.Errorf("Parts[0].Kind = %v", numeric.Kind)
	}
	if len(numeric.Hints) != 2 || numeric.Hints[0].HTML || !numeric.Hints[1].HTML {
		t.Errorf("Parts[0].Hints = %+v", numeric.Hints)
	}
	if s := numeric.Solutions[0]; s.Text != "3.10" || s.Weight != 1 || !reflect.DeepEqual(s.AllowedUnits, []string{"cm", ""}) {
		t.Errorf("Parts[0].Solutions[0] = %+v", s)
	}
	if s := numeric.Solutions[1]; s.Text != "31" || s.Weight != .5 || s.AllowedUnits == nil || len(s.AllowedUnits) != 0 {
		t.Errorf("Parts[0].Solutions[1] = %+v", s)
	}

	blanks := q.Parts[1].Solutions[0].Patterns
	if blanks["001"].Pattern != "dogs?" || blanks["002"].Pattern != "cat" || blanks["002"].Solution != "cat" {
		t.Errorf("Parts[1] patterns = %+v", blanks)
	}

	words := q.Parts[2].Solutions[0].Words
	if !reflect.DeepEqual(words, map[string][]string{"001": {"1"}, "002": {"1", "2"}}) {
		t.Errorf("Parts[2] words = %+v", words)
	}

	mapping := q.Parts[3].Solutions[0].Mapping
	if !reflect.DeepEqual(mapping, map[string]int{"0": 1, "1": 0}) {
		t.Errorf("Parts[3] mapping = %+v", mapping)
	}
}

func TestQuestion_MarshalJSON_roundTrip(t *testing.T) {
	item, err := DecodeItem([]byte(questionJSON))
	if err != nil {
		t.Fatalf("DecodeItem() error = %v", err)
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{
		`"MimeType":"application/vnd.nextthought.naquestion"`,
		`"Class":"NumericMathPart"`,
		`"value":3.10`,
		`"allowed_units":[]`,
		`"Class":"HTMLHint"`,
		`"Class":"RegEx"`,
		`"lang":"en"`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Marshal() = %s; missing %s", data, want)
		}
	}

	again, err := DecodeItem(data)
	if err != nil {
		t.Fatalf("DecodeItem() of marshalled data error = %v", err)
	}
	if !reflect.DeepEqual(item, again) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", again, item)
	}
}

func TestDecodeItem_unknown(t *testing.T) {
	if _, err := DecodeItem([]byte(`{"MimeType": "application/vnd.nextthought.unknown"}`)); err == nil {
		t.Error("DecodeItem() want error for unknown type")
	}
	if _, err := DecodeItem([]byte(`{"Class": "Question", "parts": [{"Class": "NopePart"}]}`)); err == nil {
		t.Error("DecodeItem() want error for unknown part type")
	}
}

func TestStripSolutions(t *testing.T) {
	a := &Assignment{
		NTIID: "tag:nextthought.com,2011-10:Tathmini-NAQ-hw1",
		Title: "HW 1",
		Parts: []AssignmentPart{{
			AutoGrade: true,
			QuestionSet: QuestionSet{
				NTIID: "tag:nextthought.com,2011-10:Tathmini-NAQ-hw1.set",
				Questions: []Question{{
					NTIID: "tag:nextthought.com,2011-10:Tathmini-NAQ-hw1.q1",
					Parts: []Part{{
						Kind:        FreeResponsePart,
						Explanation: "because",
						Solutions:   []Solution{{Kind: FreeResponseSolution, Text: "yes"}},
					}},
				}},
			},
		}},
	}

	stripped := StripSolutions(a).(*Assignment)
	p := stripped.Parts[0].QuestionSet.Questions[0].Parts[0]
	if p.Solutions != nil || p.Explanation != "" {
		t.Errorf("StripSolutions() part = %+v", p)
	}
	if orig := a.Parts[0].QuestionSet.Questions[0].Parts[0]; len(orig.Solutions) != 1 {
		t.Error("StripSolutions() modified the original item")
	}
	if got := len(Children(a)); got != 2 {
		t.Errorf("Children() = %d items, want 2", got)
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		in   string
		want Response
	}{
		{in: `"x+1"`, want: TextResponse("x+1")},
		{in: `3.10`, want: TextResponse("3.10")},
		{in: `true`, want: TextResponse("true")},
		{in: `null`, want: nil},
		{in: `[1, "b"]`, want: ListResponse{"1", "b"}},
		{in: `{"001": "dog", "002": 2}`, want: DictResponse{"001": "dog", "002": "2"}},
		{
			in:   `{"MimeType": "application/vnd.nextthought.assessment.uploadedfile", "filename": "a.png", "contentType": "image/png", "size": 12}`,
			want: FileResponse{Filename: "a.png", ContentType: "image/png", Size: 12},
		},
		{
			in:   `{"Class": "ModeledContentResponse", "value": ["<p>hi</p>"]}`,
			want: ModeledContentResponse{Value: []string{"<p>hi</p>"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DecodeResponse([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeResponse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeResponse() = %#v, want %#v", got, tt.want)
			}
		})
	}

	if _, err := DecodeResponse([]byte(`[[1]]`)); err == nil {
		t.Error("DecodeResponse() want error for nested lists")
	}
}
