package assessment

import (
	"github.com/goccy/go-json"

	"github.com/trezcool/tathmini/core"
)

type WordEntry struct {
	WID     string `json:"wid" validate:"notblank"`
	Word    string `json:"word" validate:"notblank"`
	Lang    string `json:"lang,omitempty"`
	Content string `json:"content,omitempty"`
}

func (e WordEntry) MarshalJSON() ([]byte, error) {
	type alias WordEntry
	if e.Lang == "" {
		e.Lang = "en"
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"WordEntry", MimeWordEntry}, alias(e)})
}

func (e *WordEntry) UnmarshalJSON(data []byte) error {
	type alias WordEntry
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Lang == "" {
		aux.Lang = "en"
	}
	*e = WordEntry(aux)
	return nil
}

// WordBank holds the words a student can drag into the blanks of a fill-in-the-blank part.
// When Unique is set, a word can only be used once per response.
type WordBank struct {
	Entries []WordEntry `json:"entries" validate:"dive"`
	Unique  bool        `json:"unique"`
}

func (wb WordBank) MarshalJSON() ([]byte, error) {
	type alias WordBank
	if wb.Entries == nil {
		wb.Entries = []WordEntry{}
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"WordBank", MimeWordBank}, alias(wb)})
}

func (wb *WordBank) Get(wid string) (WordEntry, bool) {
	if wb == nil {
		return WordEntry{}, false
	}
	for _, e := range wb.Entries {
		if e.WID == wid {
			return e, true
		}
	}
	return WordEntry{}, false
}

func (wb *WordBank) Contains(wid string) bool {
	_, ok := wb.Get(wid)
	return ok
}

// IDOf returns the wid of the given word (case-insensitive), or "" if the bank does not have it.
func (wb *WordBank) IDOf(word string) string {
	if wb == nil {
		return ""
	}
	word = core.CleanString(word, true /* lower */)
	for _, e := range wb.Entries {
		if core.CleanString(e.Word, true /* lower */) == word {
			return e.WID
		}
	}
	return ""
}

// Resolve maps a response value, either a wid or a word, to a wid.
func (wb *WordBank) Resolve(val string) string {
	if wb.Contains(val) {
		return val
	}
	return wb.IDOf(val)
}

// Merge returns a new bank containing the entries of both banks. On wid conflicts, wb wins.
func (wb *WordBank) Merge(other *WordBank) *WordBank {
	if wb == nil && other == nil {
		return nil
	}
	merged := &WordBank{}
	seen := make(map[string]bool)
	for _, bank := range []*WordBank{wb, other} {
		if bank == nil {
			continue
		}
		merged.Unique = merged.Unique || bank.Unique
		for _, e := range bank.Entries {
			if !seen[e.WID] {
				seen[e.WID] = true
				merged.Entries = append(merged.Entries, e)
			}
		}
	}
	return merged
}

// duplicates returns the wids that are present more than once.
func (wb *WordBank) duplicates() []string {
	var dups []string
	seen := make(map[string]int)
	for _, e := range wb.Entries {
		seen[e.WID]++
		if seen[e.WID] == 2 {
			dups = append(dups, e.WID)
		}
	}
	return dups
}
