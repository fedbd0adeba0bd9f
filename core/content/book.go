// Package content compiles authored YAML content packages into assessment indexes.
package content

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/tathmini/core/assessment"
)

type (
	// Book is the root of a content package. Items are addressed by their local ids,
	// which must be unique across the whole book.
	Book struct {
		Provider string `yaml:"provider"`
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		Filename string `yaml:"filename"`
		Unit     `yaml:",inline"`
	}

	// Section is a page of the book (an HTML container in the index).
	Section struct {
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		Filename string `yaml:"filename"`
		Unit     `yaml:",inline"`
	}

	// Unit holds what books and sections have in common.
	Unit struct {
		Questions    []QuestionSource    `yaml:"questions"`
		QuestionSets []QuestionSetSource `yaml:"question_sets"`
		Assignments  []AssignmentSource  `yaml:"assignments"`
		Sections     []Section           `yaml:"sections"`
	}

	QuestionSource struct {
		ID       string               `yaml:"id"`
		Content  string               `yaml:"content"`
		WordBank *assessment.WordBank `yaml:"wordbank"`
		Parts    []PartSource         `yaml:"parts"`
	}

	PartSource struct {
		Type              string               `yaml:"type"`
		Content           string               `yaml:"content"`
		Explanation       string               `yaml:"explanation"`
		Hints             []string             `yaml:"hints"`
		Choices           []string             `yaml:"choices"`
		Labels            []string             `yaml:"labels"`
		Values            []string             `yaml:"values"`
		Input             string               `yaml:"input"`
		WordBank          *assessment.WordBank `yaml:"wordbank"`
		Solutions         []SolutionSource     `yaml:"solutions"`
		AllowedMimeTypes  []string             `yaml:"allowed_mime_types"`
		AllowedExtensions []string             `yaml:"allowed_extensions"`
		MaxFileSize       int64                `yaml:"max_file_size"`
	}

	// SolutionSource keeps the value as a YAML node so that numbers keep their written form (eg. "3.10").
	SolutionSource struct {
		Type   string    `yaml:"type"`
		Value  yaml.Node `yaml:"value"`
		Weight float64   `yaml:"weight"`
		Units  *[]string `yaml:"units"`
	}

	// QuestionSetSource lists the local ids of its questions.
	QuestionSetSource struct {
		ID        string   `yaml:"id"`
		Title     string   `yaml:"title"`
		Questions []string `yaml:"questions"`
	}

	AssignmentSource struct {
		ID                 string                 `yaml:"id"`
		Title              string                 `yaml:"title"`
		Content            string                 `yaml:"content"`
		Category           string                 `yaml:"category"`
		NonPublic          bool                   `yaml:"non_public"`
		AvailableBeginning *time.Time             `yaml:"available_beginning"`
		AvailableEnding    *time.Time             `yaml:"available_ending"`
		Parts              []AssignmentPartSource `yaml:"parts"`
	}

	// AssignmentPartSource references a question set by its local id.
	AssignmentPartSource struct {
		Title       string `yaml:"title"`
		Content     string `yaml:"content"`
		AutoGrade   *bool  `yaml:"auto_grade"`
		QuestionSet string `yaml:"question_set"`
	}
)

// LoadBook decodes a YAML content package. Unknown fields are rejected.
func LoadBook(r io.Reader) (*Book, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var book Book
	if err := dec.Decode(&book); err != nil {
		return nil, errors.Wrap(err, "decoding book")
	}
	if book.ID == "" {
		return nil, errors.New("book id is required")
	}
	return &book, nil
}

func LoadBookFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening book")
	}
	defer func() { _ = f.Close() }()
	return LoadBook(f)
}
