package domain

// Question is one discrete question unit extracted from a question paper.
type Question struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Answer is the generated study answer for one question.
type Answer struct {
	Text string `json:"text"`
}

// StudyParams carries the submission parameters the answering step tailors
// its output to. An empty Notes means no reference notes were supplied.
type StudyParams struct {
	Subject   string
	MarkType  string
	StudyMode string
	Notes     string
}

// HasNotes reports whether reference notes accompany the request.
func (p StudyParams) HasNotes() bool {
	return p.Notes != ""
}
