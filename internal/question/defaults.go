package question

// NewDefault returns the placeholder an author starts from. It is
// intentionally incomplete: the prompt is empty and no answer is marked.
func NewDefault(t Type) Question {
	q := Question{
		Type:       t,
		Marks:      1,
		Difficulty: DifficultyMedium,
	}
	switch t {
	case TypeMCQ, TypeMMCQ:
		q.Payload = ChoicePayload{
			Options: []Option{
				{ID: "a", Text: EmptyRichText},
				{ID: "b", Text: EmptyRichText},
			},
		}
	case TypeTrueFalse:
		q.Payload = TrueFalsePayload{}
	case TypeFillTheBlank:
		q.Payload = BlankPayload{Mode: MatchNormal}
	case TypeMatching:
		q.Payload = MatchingPayload{
			Left:  []MatchItem{{ID: "l1"}},
			Right: []MatchItem{{ID: "r1"}},
		}
	case TypeDescriptive:
		q.Payload = DescriptivePayload{}
	case TypeCoding:
		q.Payload = CodingPayload{}
	case TypeFileUpload:
		q.Payload = FileUploadPayload{}
	}
	return q
}
