package edits

import (
	"bytes"
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/resumetailor/core/errors"
)

const formatName = "edit requests"

// envelope covers the wrapped shapes: {"changes": [...]} from generators and
// {"items": [...]} from change logs.
type envelope struct {
	Changes []Raw `json:"changes" yaml:"changes"`
	Items   []Raw `json:"items" yaml:"items"`
}

// Decode reads edit records from JSON or YAML. It accepts a bare list, an
// object wrapping the list under "changes" or "items", or a single record.
func Decode(r io.Reader) ([]Raw, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) ([]Raw, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	unmarshal := yaml.Unmarshal
	if trimmed[0] == '[' || trimmed[0] == '{' {
		unmarshal = json.Unmarshal
	}

	if trimmed[0] == '[' || trimmed[0] == '-' {
		var list []Raw
		if err := unmarshal(trimmed, &list); err != nil {
			return nil, &errors.ParseError{Format: formatName, Message: "invalid list", Err: err}
		}
		return list, nil
	}

	var env envelope
	if err := unmarshal(trimmed, &env); err != nil {
		return nil, &errors.ParseError{Format: formatName, Message: "invalid document", Err: err}
	}
	if env.Changes != nil || env.Items != nil {
		return append(env.Changes, env.Items...), nil
	}

	var single Raw
	if err := unmarshal(trimmed, &single); err != nil {
		return nil, &errors.ParseError{Format: formatName, Message: "invalid record", Err: err}
	}
	if single == (Raw{}) {
		return nil, errors.NewParse(formatName, "", "no edit records found")
	}
	return []Raw{single}, nil
}

// Encode writes canonical requests as a JSON list in the generator shape.
func Encode(w io.Writer, reqs []Request) error {
	if reqs == nil {
		reqs = []Request{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(reqs)
}
