package assessment

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
)

var jsonNumberRegex = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?(?:[eE][-+]?\d+)?$`)

// Solution is one accepted answer of a part. Which fields are meaningful depends on Kind:
//   - free response, math, symbolic & numeric math: Text (and AllowedUnits for math kinds)
//   - multiple choice: Index; multiple answer: Indices
//   - matching & ordering: Mapping (label index -> value index)
//   - fill in the blank short answer: Patterns (blank id -> regex)
//   - fill in the blank with word bank: Words (blank id -> accepted wids)
type Solution struct {
	Kind   SolutionKind
	Weight float64 // 0 means 1

	Text string
	// AllowedUnits: nil means units are not checked; empty means no unit may be given;
	// "" in the list makes the unit optional.
	AllowedUnits []string

	Index    int
	Indices  []int
	Mapping  map[string]int
	Patterns map[string]RegEx
	Words    map[string][]string
}

func (s *Solution) weight() float64 {
	if s.Weight <= 0 {
		return 1
	}
	return s.Weight
}

func (s *Solution) value() interface{} {
	switch s.Kind {
	case NumericMathSolution:
		if jsonNumberRegex.MatchString(s.Text) {
			return json.RawMessage(s.Text)
		}
		return s.Text
	case MultipleChoiceSolution:
		return s.Index
	case MultipleChoiceMultipleAnswerSolution:
		if s.Indices == nil {
			return []int{}
		}
		return s.Indices
	case MatchingSolution, OrderingSolution:
		if s.Mapping == nil {
			return map[string]int{}
		}
		return s.Mapping
	case FillInTheBlankShortAnswerSolution:
		if s.Patterns == nil {
			return map[string]RegEx{}
		}
		return s.Patterns
	case FillInTheBlankWithWordBankSolution:
		if s.Words == nil {
			return map[string][]string{}
		}
		return s.Words
	default:
		return s.Text
	}
}

func (s Solution) MarshalJSON() ([]byte, error) {
	out := struct {
		header
		Value        interface{} `json:"value"`
		Weight       float64     `json:"weight"`
		AllowedUnits *[]string   `json:"allowed_units,omitempty"`
	}{
		header: header{s.Kind.Class(), s.Kind.MimeType()},
		Value:  s.value(),
		Weight: s.weight(),
	}
	if s.AllowedUnits != nil {
		out.AllowedUnits = &s.AllowedUnits
	}
	return json.Marshal(out)
}

func (s *Solution) UnmarshalJSON(data []byte) error {
	var aux struct {
		header
		Value        json.RawMessage `json:"value"`
		Weight       *float64        `json:"weight"`
		AllowedUnits *[]string       `json:"allowed_units"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	kind, err := ParseSolutionKind(aux.MimeType, aux.Class)
	if err != nil {
		return err
	}

	*s = Solution{Kind: kind, Weight: 1}
	if aux.Weight != nil {
		s.Weight = *aux.Weight
	}
	if aux.AllowedUnits != nil {
		s.AllowedUnits = *aux.AllowedUnits
		if s.AllowedUnits == nil {
			s.AllowedUnits = []string{}
		}
	}
	if err := s.decodeValue(aux.Value); err != nil {
		return errors.Wrapf(err, "decoding %s value", kind.Class())
	}
	return nil
}

func (s *Solution) decodeValue(raw json.RawMessage) error {
	var val interface{}
	if raw = bytes.TrimSpace(raw); len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&val); err != nil {
			return err
		}
	}
	if val == nil {
		return nil
	}

	switch s.Kind {
	case MultipleChoiceSolution:
		idx, err := toIndex(val)
		s.Index = idx
		return err

	case MultipleChoiceMultipleAnswerSolution:
		list, ok := val.([]interface{})
		if !ok {
			list = []interface{}{val}
		}
		s.Indices = make([]int, 0, len(list))
		for _, item := range list {
			idx, err := toIndex(item)
			if err != nil {
				return err
			}
			s.Indices = append(s.Indices, idx)
		}

	case MatchingSolution, OrderingSolution:
		obj, ok := val.(map[string]interface{})
		if !ok {
			// a list maps positions to value indices
			list, isList := val.([]interface{})
			if !isList {
				return core.NewInvalidValueError(val, "expected a mapping")
			}
			obj = make(map[string]interface{}, len(list))
			for i, item := range list {
				obj[strconv.Itoa(i)] = item
			}
		}
		s.Mapping = make(map[string]int, len(obj))
		for k, item := range obj {
			idx, err := toIndex(item)
			if err != nil {
				return err
			}
			s.Mapping[k] = idx
		}

	case FillInTheBlankShortAnswerSolution:
		var patterns map[string]RegEx
		if err := json.Unmarshal(raw, &patterns); err != nil {
			return err
		}
		s.Patterns = patterns

	case FillInTheBlankWithWordBankSolution:
		obj, ok := val.(map[string]interface{})
		if !ok {
			return core.NewInvalidValueError(val, "expected a mapping")
		}
		s.Words = make(map[string][]string, len(obj))
		for k, item := range obj {
			list, isList := item.([]interface{})
			if !isList {
				list = []interface{}{item}
			}
			for _, w := range list {
				wid, err := scalarString(w)
				if err != nil {
					return err
				}
				s.Words[k] = append(s.Words[k], wid)
			}
		}

	default:
		text, err := scalarString(val)
		if err != nil {
			return err
		}
		s.Text = text
	}
	return nil
}

// sortedKeys returns the keys of the mapping in numeric order (non-numeric keys last).
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

func toIndex(v interface{}) (int, error) {
	s, err := scalarString(v)
	if err != nil {
		return 0, err
	}
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, core.NewInvalidValueError(v, "expected an index")
	}
	return idx, nil
}

// RegEx is a fill in the blank pattern. Solution is the answer displayed to students.
type RegEx struct {
	Pattern  string `json:"pattern"`
	Solution string `json:"solution,omitempty"`
}

func (rx RegEx) MarshalJSON() ([]byte, error) {
	type alias RegEx
	return json.Marshal(struct {
		header
		alias
	}{header{"RegEx", MimeRegEx}, alias(rx)})
}

func (rx *RegEx) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		*rx = RegEx{}
		return json.Unmarshal(data, &rx.Pattern)
	}
	var aux struct {
		Pattern  string `json:"pattern"`
		Solution string `json:"solution"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*rx = RegEx{Pattern: aux.Pattern, Solution: aux.Solution}
	return nil
}

func (rx RegEx) compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)^(?:` + rx.Pattern + `)$`)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling pattern %q", rx.Pattern)
	}
	return re, nil
}

// Match tells if the whole (trimmed) value matches the pattern, ignoring case.
func (rx RegEx) Match(value string) (bool, error) {
	re, err := rx.compile()
	if err != nil {
		return false, err
	}
	return re.MatchString(strings.TrimSpace(value)), nil
}
