package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON decodes a JSON object out of free-form model output. Pair it
// with the Loose* field types so a wrong-typed field only loses that field.
// It tries, in order: the whole text, the text with markdown fences removed,
// and the span from the first '{' to the last '}'. When none parse it returns
// fallback and false.
func ExtractJSON[T any](raw string, fallback T) (T, bool) {
	for _, candidate := range jsonCandidates(raw) {
		if candidate == "null" {
			continue
		}
		var out T
		if err := json.Unmarshal([]byte(candidate), &out); err == nil {
			return out, true
		}
	}
	return fallback, false
}

func jsonCandidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	candidates := []string{trimmed}

	unfenced := StripFences(trimmed)
	if unfenced != trimmed {
		candidates = append(candidates, unfenced)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, trimmed[start:end+1])
	}
	return candidates
}

// StripFences removes a surrounding ```json ... ``` block.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// StringList keeps the string entries of a loosely-typed JSON array and skips
// the rest.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		// A bare string or null is tolerated as a single-entry or empty list.
		var single string
		if json.Unmarshal(b, &single) == nil && single != "" {
			*l = StringList{single}
			return nil
		}
		*l = StringList{}
		return nil
	}
	out := make(StringList, 0, len(items))
	for _, item := range items {
		if string(item) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// LooseString keeps a JSON string value; any other JSON type decodes to "".
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	var v string
	if json.Unmarshal(b, &v) != nil {
		v = ""
	}
	*s = LooseString(v)
	return nil
}

func (s LooseString) String() string {
	return string(s)
}

// LooseFloat accepts a JSON number or a numeric string.
type LooseFloat struct {
	Value float64
	Set   bool
}

func (f *LooseFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = LooseFloat{Value: n, Set: true}
		return nil
	}
	var s json.Number
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := s.Float64(); err == nil {
			*f = LooseFloat{Value: v, Set: true}
		}
	}
	return nil
}

// Or returns the parsed value or def when absent.
func (f LooseFloat) Or(def float64) float64 {
	if !f.Set {
		return def
	}
	return f.Value
}

// LooseStringMap decodes a JSON object whose non-string values become "".
type LooseStringMap map[string]string

func (m *LooseStringMap) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	out := LooseStringMap{}
	if err := json.Unmarshal(b, &raw); err == nil {
		for k, v := range raw {
			var s string
			if json.Unmarshal(v, &s) != nil {
				s = ""
			}
			out[k] = s
		}
	}
	*m = out
	return nil
}
