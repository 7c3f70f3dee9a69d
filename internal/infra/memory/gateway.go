package memory

import (
	"context"
	"strings"
	"sync"

	"sheets-quiz-service/internal/domain"
)

// Gateway is the offline/demo implementation of app.Gateway: quiz content and
// allowlist come from a static dataset, appended results stay in memory. It is
// what the server runs on when no Google credentials are configured.
type Gateway struct {
	content   domain.QuizContent
	allowlist []string

	mu      sync.RWMutex
	results []domain.QuizResult
}

func NewGateway(content domain.QuizContent, allowlist []string) *Gateway {
	return &Gateway{content: content, allowlist: allowlist}
}

func (g *Gateway) FetchQuiz(_ context.Context, _ string) (domain.QuizContent, error) {
	if len(g.content.Questions) == 0 {
		return domain.QuizContent{}, domain.ErrNoQuestions
	}
	return g.content, nil
}

func (g *Gateway) FetchAllowlist(_ context.Context, _ string) ([]string, error) {
	return g.allowlist, nil
}

func (g *Gateway) CountAttempts(_ context.Context, _ string, email string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, r := range g.results {
		if strings.EqualFold(r.UserEmail, email) {
			count++
		}
	}
	return count, nil
}

func (g *Gateway) AppendResult(_ context.Context, _ string, result domain.QuizResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = append(g.results, result)
	return nil
}

// Results returns a copy of everything appended so far.
func (g *Gateway) Results() []domain.QuizResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.QuizResult, len(g.results))
	copy(out, g.results)
	return out
}

// DemoContent is the built-in dataset served in offline/demo mode.
func DemoContent() domain.QuizContent {
	return domain.QuizContent{
		Settings: domain.QuizSettings{
			Title:            "General Knowledge Quiz",
			DurationMinutes:  5,
			ShuffleQuestions: true,
			ShuffleOptions:   true,
			Mode:             domain.ModeExam,
		},
		Questions: []domain.Question{
			{
				ID:            "1",
				Prompt:        "What is the capital of France?",
				Options:       []string{"Paris", "Lyon", "Marseille", "Nice"},
				CorrectAnswer: "Paris",
				Explanation:   "Paris has been the capital of France since the 10th century.",
			},
			{
				ID:            "2",
				Prompt:        "Which language runs natively in web browsers?",
				Options:       []string{"Python", "JavaScript", "C++", "Java"},
				CorrectAnswer: "JavaScript",
				Explanation:   "JavaScript is the only language browsers execute directly.",
			},
			{
				ID:            "3",
				Prompt:        "What is the approximate value of Pi?",
				Options:       []string{"3.14", "3.15", "2.14", "4.14"},
				CorrectAnswer: "3.14",
				Explanation:   "Pi is approximately 3.14159.",
			},
			{
				ID:            "4",
				Prompt:        "Which planet is closest to the sun?",
				Options:       []string{"Venus", "Mercury", "Mars", "Earth"},
				CorrectAnswer: "Mercury",
			},
			{
				ID:            "5",
				Prompt:        "Which is the largest ocean on Earth?",
				Options:       []string{"Atlantic", "Pacific", "Indian", "Arctic"},
				CorrectAnswer: "Pacific",
			},
		},
	}
}
