package domain

// OptionView is an option as shown to the quiz taker; correctness is never exposed.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the render model for the current wizard step.
type QuestionView struct {
	QuizID     string       `json:"quizId"`
	QuizTitle  string       `json:"quizTitle"`
	Number     int          `json:"number"`
	Total      int          `json:"total"`
	QuestionID string       `json:"questionId"`
	Text       string       `json:"text"`
	Points     int          `json:"points"`
	Options    []OptionView `json:"options"`
	Selected   string       `json:"selected,omitempty"`
	CanGoBack  bool         `json:"canGoBack"`
}

// NewQuestionView builds the view for questions[position] with any recorded answer preselected.
func NewQuestionView(quiz Quiz, session AttemptSession) QuestionView {
	question := quiz.Questions[session.Position]
	options := make([]OptionView, 0, len(question.Options))
	for _, opt := range question.Options {
		options = append(options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return QuestionView{
		QuizID:     quiz.ID,
		QuizTitle:  quiz.Title,
		Number:     session.Position + 1,
		Total:      len(quiz.Questions),
		QuestionID: question.ID,
		Text:       question.Text,
		Points:     question.Points,
		Options:    options,
		Selected:   session.Answers[question.ID],
		CanGoBack:  session.Position > 0,
	}
}
