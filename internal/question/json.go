package question

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// header holds the fields shared by every question type. The payload fields
// sit next to them at the top level of the document.
type header struct {
	ID            string     `json:"id"`
	Type          Type       `json:"type"`
	Prompt        string     `json:"prompt"`
	Marks         float64    `json:"marks"`
	NegativeMarks float64    `json:"negative_marks"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(header{
		ID:            q.ID,
		Type:          q.Type,
		Prompt:        q.Prompt,
		Marks:         q.Marks,
		NegativeMarks: q.NegativeMarks,
		Difficulty:    q.Difficulty,
	})
	if err != nil {
		return nil, err
	}
	if q.Payload == nil {
		return head, nil
	}
	body, err := json.Marshal(q.Payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) <= 2 {
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	p, err := decodePayload(h.Type, data)
	if err != nil {
		return fmt.Errorf("question %q: %w", h.ID, err)
	}
	*q = Question{
		ID:            h.ID,
		Type:          h.Type,
		Prompt:        h.Prompt,
		Marks:         h.Marks,
		NegativeMarks: h.NegativeMarks,
		Difficulty:    h.Difficulty,
		Payload:       p,
	}
	return nil
}

func decodePayload(t Type, data []byte) (Payload, error) {
	switch t {
	case TypeMCQ, TypeMMCQ:
		return decodeAs[ChoicePayload](data)
	case TypeTrueFalse:
		return decodeAs[TrueFalsePayload](data)
	case TypeFillTheBlank:
		return decodeAs[BlankPayload](data)
	case TypeMatching:
		return decodeAs[MatchingPayload](data)
	case TypeDescriptive:
		return decodeAs[DescriptivePayload](data)
	case TypeCoding:
		return decodeAs[CodingPayload](data)
	case TypeFileUpload:
		return decodeAs[FileUploadPayload](data)
	default:
		return nil, fmt.Errorf("unknown question type %q", t)
	}
}

func decodeAs[P Payload](data []byte) (Payload, error) {
	var p P
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}
