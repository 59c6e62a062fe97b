package question

import "regexp"

type Type string

const (
	TypeMCQ          Type = "MCQ"
	TypeMMCQ         Type = "MMCQ"
	TypeTrueFalse    Type = "TRUE_FALSE"
	TypeFillTheBlank Type = "FILL_THE_BLANK"
	TypeMatching     Type = "MATCHING"
	TypeDescriptive  Type = "DESCRIPTIVE"
	TypeCoding       Type = "CODING"
	TypeFileUpload   Type = "FILE_UPLOAD"
)

// Types lists every supported question type in authoring order.
var Types = []Type{
	TypeMCQ, TypeMMCQ, TypeTrueFalse, TypeFillTheBlank,
	TypeMatching, TypeDescriptive, TypeCoding, TypeFileUpload,
}

func (t Type) Valid() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Manual reports whether answers of this type are graded by a person.
func (t Type) Manual() bool {
	return t == TypeDescriptive || t == TypeCoding || t == TypeFileUpload
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// EvaluationType constrains the lexical form of a blank's accepted answers.
type EvaluationType string

const (
	EvalText      EvaluationType = "TEXT"
	EvalNumber    EvaluationType = "NUMBER"
	EvalUppercase EvaluationType = "UPPERCASE"
	EvalLowercase EvaluationType = "LOWERCASE"
)

// MatchMode selects how a submitted blank is compared with accepted answers.
type MatchMode string

const (
	MatchStrict  MatchMode = "STRICT"
	MatchNormal  MatchMode = "NORMAL"
	MatchLenient MatchMode = "LENIENT"
)

// EmptyRichText is what the editor produces for an untouched field.
const EmptyRichText = "<p></p>"

type Question struct {
	ID            string
	Type          Type
	Prompt        string
	Marks         float64
	NegativeMarks float64
	Difficulty    Difficulty
	Payload       Payload
}

// Payload is the type-specific part of a question. The set of
// implementations is closed to this package.
type Payload interface {
	payload()
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChoicePayload backs both MCQ and MMCQ.
type ChoicePayload struct {
	Options          []Option `json:"options"`
	CorrectOptionIDs []string `json:"correct_option_ids"`
}

type TrueFalsePayload struct {
	Answer *bool `json:"true_false_answer"`
}

type Blank struct {
	Answers        []string       `json:"answers"`
	EvaluationType EvaluationType `json:"evaluation_type,omitempty"`
	Weight         float64        `json:"weight"`
}

type BlankPayload struct {
	Blanks []Blank   `json:"blanks"`
	Mode   MatchMode `json:"match_mode,omitempty"`
}

type MatchItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	MatchIDs []string `json:"match_pair_ids,omitempty"`
}

type MatchingPayload struct {
	Left  []MatchItem `json:"left_items"`
	Right []MatchItem `json:"right_items"`
}

type Criterion struct {
	Key       string  `json:"key"`
	Desc      string  `json:"desc"`
	MaxPoints float64 `json:"max_points"`
}

type Rubric struct {
	Criteria []Criterion `json:"criteria"`
}

type DescriptivePayload struct {
	ModelAnswer string   `json:"model_answer,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	MinWords    *int     `json:"min_words,omitempty"`
	MaxWords    *int     `json:"max_words,omitempty"`
	Rubric      *Rubric  `json:"rubric,omitempty"`
}

type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected_output"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// CodingPayload is informational; source is never executed here.
type CodingPayload struct {
	Language    string     `json:"language,omitempty"`
	StarterCode string     `json:"starter_code,omitempty"`
	TestCases   []TestCase `json:"test_cases,omitempty"`
}

type FileUploadPayload struct {
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	MaxSizeBytes      int64    `json:"max_size_bytes,omitempty"`
}

func (ChoicePayload) payload()      {}
func (TrueFalsePayload) payload()   {}
func (BlankPayload) payload()       {}
func (MatchingPayload) payload()    {}
func (DescriptivePayload) payload() {}
func (CodingPayload) payload()      {}
func (FileUploadPayload) payload()  {}

var blankMarker = regexp.MustCompile(`_{3,}`)

// BlankCount returns the number of blank markers (runs of three or more
// underscores) in a prompt.
func BlankCount(prompt string) int {
	return len(blankMarker.FindAllStringIndex(prompt, -1))
}

// Response is one learner's answer to one question. Only the field that
// matches the question's type is read.
type Response struct {
	QuestionID        string              `json:"question_id"`
	SelectedOptionIDs []string            `json:"selected_option_ids,omitempty"`
	Boolean           *bool               `json:"boolean,omitempty"`
	Blanks            map[int]string      `json:"blanks,omitempty"`
	Matches           map[string][]string `json:"matches,omitempty"`
	Text              string              `json:"text,omitempty"`
	FileKey           string              `json:"file_key,omitempty"`
}
