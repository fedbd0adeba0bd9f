package assessment

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/trezcool/tathmini/core"
)

var (
	blankFieldRegex = regexp.MustCompile(`<input\b[^>]*\btype=["']blankfield["'][^>]*>`)
	blankNameRegex  = regexp.MustCompile(`\bname=["']([^"']+)["']`)
)

// Part is a gradable component of a question. Which fields are meaningful depends on Kind.
type Part struct {
	Kind        PartKind   `json:"-"`
	Content     string     `json:"content"`
	Explanation string     `json:"explanation,omitempty"`
	Hints       []Hint     `json:"hints,omitempty" validate:"dive"`
	Solutions   []Solution `json:"solutions,omitempty"`

	// multiple choice
	Choices []string `json:"choices,omitempty"`

	// matching & ordering
	Labels []string `json:"labels,omitempty"`
	Values []string `json:"values,omitempty"`

	// fill in the blank: markup with <input type="blankfield" name="..."/> tags
	Input    string    `json:"input,omitempty"`
	WordBank *WordBank `json:"wordbank,omitempty"`

	// file
	AllowedMimeTypes  []string `json:"allowed_mime_types,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	MaxFileSize       int64    `json:"max_file_size,omitempty" validate:"gte=0"`
}

func (p Part) MarshalJSON() ([]byte, error) {
	type alias Part
	return json.Marshal(struct {
		header
		alias
	}{header{p.Kind.Class(), p.Kind.MimeType()}, alias(p)})
}

func (p *Part) UnmarshalJSON(data []byte) error {
	type alias Part
	aux := struct {
		header
		*alias
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	kind, err := ParsePartKind(aux.MimeType, aux.Class)
	if err != nil {
		return err
	}
	p.Kind = kind
	return nil
}

// AutoGradable tells if the part can be graded without an instructor.
func (p *Part) AutoGradable() bool {
	switch p.Kind {
	case FilePart, ModeledContentPart:
		return false
	}
	return len(p.Solutions) > 0
}

// Grade returns the highest weight among the solutions accepting the response, 0 if none does.
func (p *Part) Grade(resp Response) (float64, error) {
	if resp == nil {
		return 0, nil
	}
	var grade float64
	for i := range p.Solutions {
		sol := &p.Solutions[i]
		grader, ok := GraderFor(sol.Kind)
		if !ok {
			return 0, core.NewInvalidValueError(sol.Kind, "no grader for solution")
		}
		accepted, err := grader(p, sol, resp)
		if err != nil {
			return 0, err
		}
		if accepted && sol.weight() > grade {
			grade = sol.weight()
		}
	}
	return grade, nil
}

// MaxGrade is the highest grade the part can get.
func (p *Part) MaxGrade() float64 {
	var max float64
	for i := range p.Solutions {
		if w := p.Solutions[i].weight(); w > max {
			max = w
		}
	}
	return max
}

// Blanks returns the names of the blank fields of the part's input, in order.
func (p *Part) Blanks() []string {
	var names []string
	for _, field := range blankFieldRegex.FindAllString(p.Input, -1) {
		if m := blankNameRegex.FindStringSubmatch(field); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// ValidateFileResponse checks an uploaded file against the part's restrictions.
func (p *Part) ValidateFileResponse(f FileResponse) error {
	if len(p.AllowedMimeTypes) > 0 && !mimeTypeAllowed(f.ContentType, p.AllowedMimeTypes) {
		return core.NewInvalidValueError(f.ContentType, "file type is not allowed")
	}
	if len(p.AllowedExtensions) > 0 && !extensionAllowed(f.Filename, p.AllowedExtensions) {
		return core.NewInvalidValueError(f.Filename, "file extension is not allowed")
	}
	if p.MaxFileSize > 0 && f.Size > p.MaxFileSize {
		return core.NewInvalidValueError(f.Size, "file is larger than %d bytes", p.MaxFileSize)
	}
	return nil
}

func mimeTypeAllowed(ct string, allowed []string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case a == "*" || a == "*/*" || a == ct:
			return true
		case strings.HasSuffix(a, "/*") && strings.HasPrefix(ct, strings.TrimSuffix(a, "*")):
			return true
		}
	}
	return false
}

func extensionAllowed(filename string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "*" || a == ".*" {
			return true
		}
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if ext != "" && a == ext {
			return true
		}
	}
	return false
}

// WithoutSolutions returns a copy of the part for students: no solutions and no explanation.
func (p Part) WithoutSolutions() Part {
	p.Solutions = nil
	p.Explanation = ""
	return p
}
