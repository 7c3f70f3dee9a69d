package domain

import "time"

// Mode selects how a quiz behaves during an attempt.
type Mode string

const (
	// ModeExam hides correctness until submission and allows one attempt per user.
	ModeExam Mode = "Exam"
	// ModeStudy reveals the correct answer and explanation after each selection.
	ModeStudy Mode = "Study"
)

// Question is one multiple-choice question, built fresh from a spreadsheet row
// on every fetch and immutable afterwards.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizSettings is the read-only settings snapshot for a quiz. The authoritative
// copy lives in the spreadsheet's Settings tab.
type QuizSettings struct {
	Title            string `json:"title"`
	DurationMinutes  int    `json:"durationMinutes"`
	ShuffleQuestions bool   `json:"shuffleQuestions"`
	ShuffleOptions   bool   `json:"shuffleOptions"`
	Mode             Mode   `json:"mode"`
	QuestionCount    int    `json:"questionCount,omitempty"`
	AvailableFrom    string `json:"availableFrom,omitempty"`
	AvailableUntil   string `json:"availableUntil,omitempty"`
	AllowlistEnabled bool   `json:"allowlistEnabled,omitempty"`
}

// OpensAt parses AvailableFrom. Malformed or empty values are treated as
// "no restriction", so ok is false for them.
func (s QuizSettings) OpensAt() (time.Time, bool) {
	return parseWindowBound(s.AvailableFrom)
}

// ClosesAt parses AvailableUntil with the same permissive semantics as OpensAt.
func (s QuizSettings) ClosesAt() (time.Time, bool) {
	return parseWindowBound(s.AvailableUntil)
}

func parseWindowBound(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// QuizContent bundles what a single gateway fetch returns.
type QuizContent struct {
	Questions []Question   `json:"questions"`
	Settings  QuizSettings `json:"settings"`
}

// AnswerRecord itemizes one question's outcome inside a result.
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// QuizResult is produced exactly once when an attempt terminates, handed to the
// gateway for persistence and then discarded.
type QuizResult struct {
	UserEmail      string            `json:"userEmail"`
	UserName       string            `json:"userName"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	StartTime      string            `json:"startTime"`
	EndTime        string            `json:"endTime"`
	Answers        map[string]string `json:"userAnswers"`
	Records        []AnswerRecord    `json:"records,omitempty"`
}

// Admission is the structured outcome of an admission check. A rejection is a
// normal outcome, not an error: Reason is safe to show to the test-taker.
type Admission struct {
	Allowed          bool   `json:"allowed"`
	Restricted       bool   `json:"isRestricted,omitempty"`
	AlreadyCompleted bool   `json:"alreadyCompleted,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Admit is the admission value for a request that passed every check.
func Admit() Admission {
	return Admission{Allowed: true}
}

// Reject builds a restricted admission with a human-readable reason.
func Reject(reason string) Admission {
	return Admission{Restricted: true, Reason: reason}
}

// RejectCompleted marks the machine-checkable "already completed" rejection.
func RejectCompleted(reason string) Admission {
	return Admission{Restricted: true, AlreadyCompleted: true, Reason: reason}
}
