package retdec

import (
	"encoding/json"
	"reflect"
)

// Phase describes one step of a running decompilation.
type Phase struct {
	Part        *string  `json:"part"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Completion  int      `json:"completion"`
	Warnings    []string `json:"warnings"`
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	type plain Phase
	fields := struct {
		*plain
		Completion float64 `json:"completion"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Completion = int(fields.Completion)
	return nil
}

// Status is a snapshot of a decompilation as reported by the status
// endpoint. The full document is kept so that two snapshots compare equal
// only when everything the service reported is the same.
type Status struct {
	Completion int
	Finished   bool
	Succeeded  bool
	Failed     bool
	Error      string
	Phases     []Phase

	raw map[string]any
}

// Completion arrives as a JSON number that may carry a fraction, such as 15.0.
type statusFields struct {
	Completion float64 `json:"completion"`
	Finished   bool    `json:"finished"`
	Succeeded  bool    `json:"succeeded"`
	Failed     bool    `json:"failed"`
	Error      *string `json:"error"`
	Phases     []Phase `json:"phases,omitempty"`
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var fields statusFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Status{
		Completion: int(fields.Completion),
		Finished:   fields.Finished,
		Succeeded:  fields.Succeeded,
		Failed:     fields.Failed,
		Phases:     fields.Phases,
		raw:        raw,
	}
	if fields.Error != nil {
		s.Error = *fields.Error
	}
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return json.Marshal(s.raw)
	}
	fields := statusFields{
		Completion: float64(s.Completion),
		Finished:   s.Finished,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Phases:     s.Phases,
	}
	if s.Error != "" {
		fields.Error = &s.Error
	}
	return json.Marshal(fields)
}

// Raw returns the status document as sent by the service.
func (s Status) Raw() map[string]any {
	return s.raw
}

// Equal reports whether two snapshots carry the same document.
func (s Status) Equal(other Status) bool {
	if s.raw == nil || other.raw == nil {
		return s.raw == nil && other.raw == nil &&
			s.Completion == other.Completion &&
			s.Finished == other.Finished &&
			s.Succeeded == other.Succeeded &&
			s.Failed == other.Failed &&
			s.Error == other.Error &&
			reflect.DeepEqual(s.Phases, other.Phases)
	}
	return reflect.DeepEqual(s.raw, other.raw)
}
