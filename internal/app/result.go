package app

import (
	"time"

	"sheets-quiz-service/internal/domain"
)

// CompileResult shapes a session's answers into a QuizResult. It is a pure
// function: no network or storage access, and it always produces exactly one
// record per question, with unanswered questions scored incorrect.
func CompileResult(questions []domain.Question, answers map[string]string, user User, start, end time.Time) domain.QuizResult {
	records := make([]domain.AnswerRecord, 0, len(questions))
	selections := make(map[string]string, len(questions))
	score := 0
	for _, q := range questions {
		selected := answers[q.ID]
		correct := selected == q.CorrectAnswer
		if correct {
			score++
		}
		selections[q.ID] = selected
		records = append(records, domain.AnswerRecord{
			QuestionID:     q.ID,
			SelectedAnswer: selected,
			IsCorrect:      correct,
		})
	}
	return domain.QuizResult{
		UserEmail:      user.Email,
		UserName:       user.Name,
		Score:          score,
		TotalQuestions: len(questions),
		StartTime:      start.UTC().Format(time.RFC3339),
		EndTime:        end.UTC().Format(time.RFC3339),
		Answers:        selections,
		Records:        records,
	}
}
