package content

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/tathmini/core/assessment"
)

type (
	// Index is the content of an assessment_index.json file.
	Index struct {
		Items    map[string]*Container `json:"Items"`
		Href     string                `json:"href"`
		Filename string                `json:"filename"`
	}

	// Container is a page of content with the assessment items it defines and its child pages.
	Container struct {
		NTIID           string                `json:"NTIID"`
		Filename        string                `json:"filename"`
		Href            string                `json:"href"`
		AssessmentItems ItemMap               `json:"AssessmentItems"`
		Items           map[string]*Container `json:"Items"`
	}

	// ItemMap maps NTIIDs to the items they identify.
	ItemMap map[string]assessment.Item
)

func (m *ItemMap) UnmarshalJSON(data []byte) error {
	var raws map[string]json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	items := make(ItemMap, len(raws))
	for id, raw := range raws {
		item, err := assessment.DecodeItem(raw)
		if err != nil {
			return errors.Wrapf(err, "decoding %s", id)
		}
		if item.ItemNTIID() != id {
			return errors.Errorf("item %s is indexed under %s", item.ItemNTIID(), id)
		}
		items[id] = item
	}
	*m = items
	return nil
}

// Flatten returns every item of the index, sorted by NTIID.
func (idx *Index) Flatten() []assessment.Item {
	items := make([]assessment.Item, 0)
	var walk func(containers map[string]*Container)
	walk = func(containers map[string]*Container) {
		for _, c := range containers {
			for _, item := range c.AssessmentItems {
				items = append(items, item)
			}
			walk(c.Items)
		}
	}
	walk(idx.Items)

	sort.Slice(items, func(i, j int) bool {
		return items[i].ItemNTIID() < items[j].ItemNTIID()
	})
	return items
}

// Marshal encodes the index as indented JSON. Map keys are sorted, so the output is stable.
func (idx *Index) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding index")
	}
	return append(data, '\n'), nil
}

func (idx *Index) Write(w io.Writer) error {
	data, err := idx.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "writing index")
}

func (idx *Index) WriteFile(path string) error {
	data, err := idx.Marshal()
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing index")
}

func ReadIndex(r io.Reader) (*Index, error) {
	var idx Index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, errors.Wrap(err, "decoding index")
	}
	return &idx, nil
}

func ReadIndexFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading index")
	}
	return ReadIndex(bytes.NewReader(data))
}

// Diff returns a unified diff between two encoded indexes, or "" when they are identical.
func Diff(from, to []byte, fromName, toName string) (string, error) {
	if bytes.Equal(from, to) {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from)),
		B:        difflib.SplitLines(string(to)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
	return diff, errors.Wrap(err, "diffing indexes")
}
