package domain

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "N/A"},
		{42 * time.Second, "0:42"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 9*time.Second, "1:02:09"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewQuestionViewPrefillsAnswer(t *testing.T) {
	quiz := Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []Question{
			{ID: "q1", Text: "1+1", Points: 1, Options: []Option{{ID: "o1", Text: "2", Correct: true}}},
			{ID: "q2", Text: "2+2", Points: 2, Options: []Option{{ID: "o2", Text: "4", Correct: true}, {ID: "o3", Text: "5"}}},
		},
	}
	view := NewQuestionView(quiz, AttemptSession{QuizID: "quiz-1", Position: 1, Answers: map[string]string{"q2": "o3"}})
	if view.Number != 2 || view.Total != 2 {
		t.Fatalf("expected question 2 of 2, got %d of %d", view.Number, view.Total)
	}
	if view.Selected != "o3" {
		t.Fatalf("expected o3 preselected, got %q", view.Selected)
	}
	if !view.CanGoBack {
		t.Fatalf("expected back navigation at position 1")
	}
	if len(view.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(view.Options))
	}
}

func TestQuizMaxScore(t *testing.T) {
	quiz := Quiz{Questions: []Question{{Points: 1}, {Points: 2}, {Points: 3}}}
	if quiz.MaxScore() != 6 {
		t.Fatalf("expected 6, got %d", quiz.MaxScore())
	}
}

func TestQuestionValidate(t *testing.T) {
	opts := func(n, correct int) []Option {
		out := make([]Option, n)
		for i := range out {
			out[i] = Option{ID: string(rune('a' + i)), Correct: i < correct}
		}
		return out
	}
	cases := []struct {
		name    string
		options []Option
		ok      bool
	}{
		{"single option", opts(1, 1), false},
		{"two correct", opts(2, 2), false},
		{"none correct", opts(2, 0), false},
		{"too many options", opts(11, 1), false},
		{"minimum", opts(2, 1), true},
		{"maximum", opts(10, 1), true},
	}
	for _, tc := range cases {
		err := Question{Text: tc.name, Options: tc.options}.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("%s: expected ErrInvalidQuestion, got %v", tc.name, err)
		}
	}
}
