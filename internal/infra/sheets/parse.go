package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"sheets-quiz-service/internal/domain"
)

// ParseSettings maps the key/value rows of the Settings tab onto QuizSettings,
// with an explicit default for every option.
func ParseSettings(rows [][]interface{}) domain.QuizSettings {
	kv := make(map[string]string, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(cellString(row, 0))
		if key == "" {
			continue
		}
		kv[key] = strings.TrimSpace(cellString(row, 1))
	}

	settings := domain.QuizSettings{
		Title:            "Quiz",
		DurationMinutes:  30,
		Mode:             domain.ModeExam,
		ShuffleQuestions: isTrue(kv["ShuffleQuestions"]),
		ShuffleOptions:   isTrue(kv["ShuffleOptions"]),
		AllowlistEnabled: isTrue(kv["AllowlistEnabled"]),
		AvailableFrom:    kv["AvailableFrom"],
		AvailableUntil:   kv["AvailableUntil"],
	}
	if title := kv["Title"]; title != "" {
		settings.Title = title
	}
	if minutes, err := strconv.Atoi(kv["Duration"]); err == nil && minutes > 0 {
		settings.DurationMinutes = minutes
	}
	if strings.EqualFold(kv["Mode"], string(domain.ModeStudy)) {
		settings.Mode = domain.ModeStudy
	}
	if n, err := strconv.Atoi(kv["QuestionCount"]); err == nil && n > 0 {
		settings.QuestionCount = n
	}
	return settings
}

// ParseQuestions builds the question bank from the Questions tab: prompt, four
// option columns, the correct option's text, and an optional explanation.
// Rows with an empty prompt are filtered out; question IDs are row indexes.
func ParseQuestions(rows [][]interface{}) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(rows))
	for i, row := range rows {
		prompt := strings.TrimSpace(cellString(row, 0))
		if prompt == "" {
			continue
		}
		options := make([]string, 0, 4)
		for col := 1; col <= 4; col++ {
			if opt := strings.TrimSpace(cellString(row, col)); opt != "" {
				options = append(options, opt)
			}
		}
		questions = append(questions, domain.Question{
			ID:            strconv.Itoa(i),
			Prompt:        prompt,
			Options:       options,
			CorrectAnswer: strings.TrimSpace(cellString(row, 5)),
			Explanation:   strings.TrimSpace(cellString(row, 6)),
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions tab: %w", domain.ErrNoQuestions)
	}
	return questions, nil
}

func cellString(row []interface{}, col int) string {
	if col >= len(row) {
		return ""
	}
	if s, ok := row[col].(string); ok {
		return s
	}
	return fmt.Sprint(row[col])
}

func isTrue(raw string) bool {
	return strings.EqualFold(raw, "TRUE")
}
