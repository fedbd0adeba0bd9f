package assessment

import (
	"github.com/goccy/go-json"
)

// Hint is a piece of help shown to the student before they submit.
type Hint struct {
	HTML  bool   `json:"-"`
	Value string `json:"value" validate:"notblank"`
}

func (h Hint) class() string {
	if h.HTML {
		return "HTMLHint"
	}
	return "TextHint"
}

func (h Hint) mimeType() string {
	if h.HTML {
		return MimeHTMLHint
	}
	return MimeTextHint
}

func (h Hint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		header
		Value string `json:"value"`
	}{header{h.class(), h.mimeType()}, h.Value})
}

func (h *Hint) UnmarshalJSON(data []byte) error {
	// a bare string is a text hint
	if len(data) > 0 && data[0] == '"' {
		h.HTML = false
		return json.Unmarshal(data, &h.Value)
	}
	var aux struct {
		header
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	h.HTML = aux.MimeType == MimeHTMLHint || aux.Class == "HTMLHint"
	h.Value = aux.Value
	return nil
}
