package assessment

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/trezcool/tathmini/core"
)

// Response is a student's answer to a single part. A nil Response means the part was not answered.
type Response interface {
	isResponse()
}

type (
	TextResponse string
	ListResponse []string
	DictResponse map[string]string

	FileResponse struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		Size        int64  `json:"size"`
		URL         string `json:"url,omitempty"`
	}

	ModeledContentResponse struct {
		Value []string `json:"value"`
	}
)

func (TextResponse) isResponse()           {}
func (ListResponse) isResponse()           {}
func (DictResponse) isResponse()           {}
func (FileResponse) isResponse()           {}
func (ModeledContentResponse) isResponse() {}

func (r FileResponse) MarshalJSON() ([]byte, error) {
	type alias FileResponse
	return json.Marshal(struct {
		header
		alias
	}{header{"UploadedFile", MimeUploadedFile}, alias(r)})
}

func (r ModeledContentResponse) MarshalJSON() ([]byte, error) {
	type alias ModeledContentResponse
	return json.Marshal(struct {
		header
		alias
	}{header{"ModeledContentResponse", MimeModeledContentResponse}, alias(r)})
}

// DecodeResponse converts a JSON encoded part response to a Response.
// Numbers keep their literal representation so that graders can honor the submitted precision.
func DecodeResponse(data []byte) (Response, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, core.NewInvalidValueError(string(data), "malformed response")
	}
	return ParseResponse(v)
}

// ParseResponse converts a decoded JSON value to a Response.
func ParseResponse(v interface{}) (Response, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Response:
		return val, nil
	case []interface{}:
		list := make(ListResponse, 0, len(val))
		for _, item := range val {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			list = append(list, s)
		}
		return list, nil
	case []string:
		return ListResponse(val), nil
	case map[string]interface{}:
		return parseObjectResponse(val)
	case map[string]string:
		return DictResponse(val), nil
	default:
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		return TextResponse(s), nil
	}
}

func parseObjectResponse(obj map[string]interface{}) (Response, error) {
	mime, _ := obj["MimeType"].(string)
	class, _ := obj["Class"].(string)
	switch {
	case mime == MimeUploadedFile || class == "UploadedFile":
		var r FileResponse
		r.Filename, _ = obj["filename"].(string)
		r.ContentType, _ = obj["contentType"].(string)
		r.URL, _ = obj["url"].(string)
		if size, ok := obj["size"]; ok {
			s, err := scalarString(size)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, core.NewInvalidValueError(size, "file size must be an integer")
			}
			r.Size = n
		}
		return r, nil
	case mime == MimeModeledContentResponse || class == "ModeledContentResponse":
		var r ModeledContentResponse
		if vals, ok := obj["value"].([]interface{}); ok {
			for _, item := range vals {
				s, err := scalarString(item)
				if err != nil {
					return nil, err
				}
				r.Value = append(r.Value, s)
			}
		}
		return r, nil
	}

	dict := make(DictResponse, len(obj))
	for k, item := range obj {
		s, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		dict[k] = s
	}
	return dict, nil
}

func scalarString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "", nil
	default:
		return "", core.NewInvalidValueError(v, "expected a text or number")
	}
}

// conversions used by the graders

func asText(r Response) (string, error) {
	switch val := r.(type) {
	case TextResponse:
		return string(val), nil
	case ListResponse:
		if len(val) == 1 {
			return val[0], nil
		}
	}
	return "", core.NewInvalidValueError(r, "expected a text response")
}

func asList(r Response) ([]string, error) {
	switch val := r.(type) {
	case ListResponse:
		return val, nil
	case TextResponse:
		return []string{string(val)}, nil
	}
	return nil, core.NewInvalidValueError(r, "expected a list response")
}

// asDict converts r to a dict. Lists are keyed by position.
func asDict(r Response) (map[string]string, error) {
	switch val := r.(type) {
	case DictResponse:
		return val, nil
	case ListResponse:
		dict := make(map[string]string, len(val))
		for i, v := range val {
			dict[strconv.Itoa(i)] = v
		}
		return dict, nil
	}
	return nil, core.NewInvalidValueError(r, "expected a dict response")
}
