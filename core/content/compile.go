package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/ntiid"
)

const defaultFilename = "index.html"

var jsonNumberRegex = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// Compiler turns books into assessment indexes.
type Compiler struct {
	// Provider is used for the NTIIDs of books that do not set their own.
	Provider string
	// Validate checks every compiled item when set.
	Validate *validator.Validate
}

// compilation holds the state of one Compile call.
type compilation struct {
	provider  string
	bookID    string
	questions map[string]*assessment.Question
	sets      map[string]*assessment.QuestionSet
	seen      map[string]string // local id -> kind
}

// Compile builds the index of book. The same book always compiles to the same index.
func (c Compiler) Compile(book *Book) (*Index, error) {
	provider := book.Provider
	if provider == "" {
		provider = c.Provider
	}
	if provider == "" {
		return nil, errors.New("a provider is required")
	}
	comp := &compilation{
		provider:  provider,
		bookID:    book.ID,
		questions: make(map[string]*assessment.Question),
		sets:      make(map[string]*assessment.QuestionSet),
		seen:      make(map[string]string),
	}

	filename := book.Filename
	if filename == "" {
		filename = defaultFilename
	}
	root, err := comp.container(book.ID, filename, book.Unit)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		Items:    map[string]*Container{root.NTIID: root},
		Href:     filename,
		Filename: filename,
	}

	if c.Validate != nil {
		for _, item := range idx.Flatten() {
			if err := c.Validate.Struct(item); err != nil {
				return nil, errors.Wrapf(err, "validating %s", item.ItemNTIID())
			}
		}
	}
	return idx, nil
}

func (comp *compilation) itemNTIID(localID string) string {
	return ntiid.Make(comp.provider, ntiid.TypeAssessment, comp.bookID+"."+localID)
}

func (comp *compilation) containerNTIID(localID string) string {
	if localID == comp.bookID {
		return ntiid.Make(comp.provider, ntiid.TypeHTML, comp.bookID)
	}
	return ntiid.Make(comp.provider, ntiid.TypeHTML, comp.bookID+"."+localID)
}

func (comp *compilation) claim(localID, kind string) error {
	if strings.TrimSpace(localID) == "" {
		return errors.Errorf("%s without an id", kind)
	}
	if prev, ok := comp.seen[localID]; ok {
		return errors.Errorf("duplicate id %q (%s and %s)", localID, prev, kind)
	}
	comp.seen[localID] = kind
	return nil
}

// container compiles a unit: questions, sets, assignments, then child sections.
// Sets and assignments may only reference items compiled before them.
func (comp *compilation) container(localID, filename string, unit Unit) (*Container, error) {
	c := &Container{
		NTIID:           comp.containerNTIID(localID),
		Filename:        filename,
		Href:            filename,
		AssessmentItems: make(ItemMap),
		Items:           make(map[string]*Container),
	}

	for i := range unit.Questions {
		q, err := comp.question(&unit.Questions[i], c.NTIID)
		if err != nil {
			return nil, err
		}
		c.AssessmentItems[q.NTIID] = q
	}
	for i := range unit.QuestionSets {
		qs, err := comp.questionSet(&unit.QuestionSets[i], c.NTIID)
		if err != nil {
			return nil, err
		}
		c.AssessmentItems[qs.NTIID] = qs
	}
	for i := range unit.Assignments {
		a, err := comp.assignment(&unit.Assignments[i], c.NTIID)
		if err != nil {
			return nil, err
		}
		c.AssessmentItems[a.NTIID] = a
	}

	for _, sec := range unit.Sections {
		if err := comp.claim(sec.ID, "section"); err != nil {
			return nil, err
		}
		fname := sec.Filename
		if fname == "" {
			fname = ntiid.Escape(sec.ID) + ".html"
		}
		child, err := comp.container(sec.ID, fname, sec.Unit)
		if err != nil {
			return nil, errors.Wrapf(err, "section %s", sec.ID)
		}
		c.Items[child.NTIID] = child
	}
	return c, nil
}

func (comp *compilation) question(src *QuestionSource, containerID string) (*assessment.Question, error) {
	if err := comp.claim(src.ID, "question"); err != nil {
		return nil, err
	}
	q := &assessment.Question{
		NTIID:       comp.itemNTIID(src.ID),
		ContainerID: containerID,
		Content:     strings.TrimSpace(src.Content),
		WordBank:    src.WordBank,
		Parts:       make([]assessment.Part, 0, len(src.Parts)),
	}
	for i := range src.Parts {
		p, err := compilePart(&src.Parts[i])
		if err != nil {
			return nil, errors.Wrapf(err, "question %s, part %d", src.ID, i)
		}
		q.Parts = append(q.Parts, p)
	}
	comp.questions[src.ID] = q
	return q, nil
}

func compilePart(src *PartSource) (assessment.Part, error) {
	kind, err := assessment.ParsePartKind(src.Type, "")
	if err != nil {
		return assessment.Part{}, err
	}
	p := assessment.Part{
		Kind:              kind,
		Content:           strings.TrimSpace(src.Content),
		Explanation:       strings.TrimSpace(src.Explanation),
		Choices:           src.Choices,
		Labels:            src.Labels,
		Values:            src.Values,
		Input:             strings.TrimSpace(src.Input),
		WordBank:          src.WordBank,
		AllowedMimeTypes:  src.AllowedMimeTypes,
		AllowedExtensions: src.AllowedExtensions,
		MaxFileSize:       src.MaxFileSize,
	}
	for _, h := range src.Hints {
		h = strings.TrimSpace(h)
		p.Hints = append(p.Hints, assessment.Hint{HTML: strings.HasPrefix(h, "<"), Value: h})
	}
	for i := range src.Solutions {
		sol, err := compileSolution(kind, &src.Solutions[i])
		if err != nil {
			return assessment.Part{}, errors.Wrapf(err, "solution %d", i)
		}
		p.Solutions = append(p.Solutions, sol)
	}
	return p, nil
}

// compileSolution goes through the externalized form so authored values are read exactly like stored ones.
func compileSolution(partKind assessment.PartKind, src *SolutionSource) (assessment.Solution, error) {
	var (
		kind assessment.SolutionKind
		err  error
	)
	if src.Type != "" {
		if kind, err = assessment.ParseSolutionKind(src.Type, ""); err != nil {
			return assessment.Solution{}, err
		}
	} else {
		var ok bool
		if kind, ok = partKind.DefaultSolution(); !ok {
			return assessment.Solution{}, errors.Errorf("%s parts have no solutions", partKind)
		}
	}

	value, err := nodeJSON(&src.Value)
	if err != nil {
		return assessment.Solution{}, err
	}
	ext := struct {
		MimeType     string          `json:"MimeType"`
		Value        json.RawMessage `json:"value"`
		Weight       float64         `json:"weight,omitempty"`
		AllowedUnits *[]string       `json:"allowed_units,omitempty"`
	}{kind.MimeType(), value, src.Weight, src.Units}
	data, err := json.Marshal(ext)
	if err != nil {
		return assessment.Solution{}, errors.Wrap(err, "encoding solution")
	}

	var sol assessment.Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return assessment.Solution{}, errors.Wrap(err, "decoding solution")
	}
	return sol, nil
}

// nodeJSON converts a YAML node to JSON, keeping numbers as written.
func nodeJSON(n *yaml.Node) (json.RawMessage, error) {
	switch n.Kind {
	case 0:
		return json.RawMessage("null"), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return json.RawMessage("null"), nil
		}
		return nodeJSON(n.Content[0])
	case yaml.AliasNode:
		return nodeJSON(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			if jsonNumberRegex.MatchString(n.Value) {
				return json.RawMessage(n.Value), nil
			}
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return json.Marshal(b)
		case "!!null":
			return json.RawMessage("null"), nil
		}
		return json.Marshal(n.Value)
	case yaml.SequenceNode:
		items := make([]json.RawMessage, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeJSON(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return json.Marshal(items)
	case yaml.MappingNode:
		var buf strings.Builder
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return nil, err
			}
			v, err := nodeJSON(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
		return json.RawMessage(buf.String()), nil
	}
	return nil, errors.Errorf("line %d: unsupported value", n.Line)
}

func (comp *compilation) questionSet(src *QuestionSetSource, containerID string) (*assessment.QuestionSet, error) {
	if err := comp.claim(src.ID, "question set"); err != nil {
		return nil, err
	}
	qs := &assessment.QuestionSet{
		NTIID:       comp.itemNTIID(src.ID),
		ContainerID: containerID,
		Title:       strings.TrimSpace(src.Title),
		Questions:   make([]assessment.Question, 0, len(src.Questions)),
	}
	for _, ref := range src.Questions {
		q, ok := comp.questions[ref]
		if !ok {
			return nil, errors.Errorf("question set %s: unknown question %q", src.ID, ref)
		}
		cp, err := clone(q)
		if err != nil {
			return nil, errors.Wrapf(err, "question set %s", src.ID)
		}
		qs.Questions = append(qs.Questions, *cp)
	}
	comp.sets[src.ID] = qs
	return qs, nil
}

func (comp *compilation) assignment(src *AssignmentSource, containerID string) (*assessment.Assignment, error) {
	if err := comp.claim(src.ID, "assignment"); err != nil {
		return nil, err
	}
	a := &assessment.Assignment{
		NTIID:              comp.itemNTIID(src.ID),
		ContainerID:        containerID,
		Title:              strings.TrimSpace(src.Title),
		Content:            strings.TrimSpace(src.Content),
		CategoryName:       src.Category,
		IsNonPublic:        src.NonPublic,
		AvailableBeginning: utc(src.AvailableBeginning),
		AvailableEnding:    utc(src.AvailableEnding),
		Parts:              make([]assessment.AssignmentPart, 0, len(src.Parts)),
	}
	if a.CategoryName == "" {
		a.CategoryName = "default"
	}
	for i, p := range src.Parts {
		qs, ok := comp.sets[p.QuestionSet]
		if !ok {
			return nil, errors.Errorf("assignment %s, part %d: unknown question set %q", src.ID, i, p.QuestionSet)
		}
		cp, err := clone(qs)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment %s, part %d", src.ID, i)
		}
		autoGrade := true
		if p.AutoGrade != nil {
			autoGrade = *p.AutoGrade
		}
		a.Parts = append(a.Parts, assessment.AssignmentPart{
			Title:       strings.TrimSpace(p.Title),
			Content:     strings.TrimSpace(p.Content),
			AutoGrade:   autoGrade,
			QuestionSet: *cp,
		})
	}
	return a, nil
}

// clone returns a deep copy of item: the items embedded in sets and assignments share nothing
// with the standalone ones.
func clone[T assessment.Item](item T) (T, error) {
	var zero T
	data, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	decoded, err := assessment.DecodeItem(data)
	if err != nil {
		return zero, err
	}
	cp, ok := decoded.(T)
	if !ok {
		return zero, errors.Errorf("cloning %s: got %T", item.ItemNTIID(), decoded)
	}
	return cp, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
