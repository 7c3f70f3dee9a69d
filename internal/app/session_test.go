package app_test

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"sheets-quiz-service/internal/app"
	"sheets-quiz-service/internal/domain"
)

func TestShufflePreservesQuestionAndOptionSets(t *testing.T) {
	content := fiveQuestionContent()
	content.Settings.ShuffleQuestions = true
	content.Settings.ShuffleOptions = true

	session := newFixedSession(content)
	view := session.Snapshot()
	if view.Total != len(content.Questions) {
		t.Fatalf("shuffle changed question count: %d != %d", view.Total, len(content.Questions))
	}

	seen := make(map[string]bool)
	for i := 0; i < view.Total; i++ {
		session.Jump(i)
		q := session.Snapshot().Question
		seen[q.ID] = true

		var original *domain.Question
		for j := range content.Questions {
			if content.Questions[j].ID == q.ID {
				original = &content.Questions[j]
			}
		}
		if original == nil {
			t.Fatalf("question %q not in source set", q.ID)
		}
		if !sameStringSet(q.Options, original.Options) {
			t.Fatalf("options of %q changed under shuffle: %v vs %v", q.ID, q.Options, original.Options)
		}
	}
	if len(seen) != len(content.Questions) {
		t.Fatalf("shuffle lost questions: saw %d of %d", len(seen), len(content.Questions))
	}
}

func TestQuestionCountTakesSubsetAfterShuffle(t *testing.T) {
	content := fiveQuestionContent()
	content.Settings.ShuffleQuestions = true
	content.Settings.QuestionCount = 3

	session := newFixedSession(content)
	if total := session.Snapshot().Total; total != 3 {
		t.Fatalf("expected 3 questions, got %d", total)
	}
}

func TestNavigationClamps(t *testing.T) {
	session := newFixedSession(fiveQuestionContent())

	session.Prev()
	if idx := session.Snapshot().Index; idx != 0 {
		t.Fatalf("prev at first question must clamp to 0, got %d", idx)
	}

	session.Jump(99)
	if idx := session.Snapshot().Index; idx != 4 {
		t.Fatalf("jump past end must clamp to last, got %d", idx)
	}

	session.Next()
	if idx := session.Snapshot().Index; idx != 4 {
		t.Fatalf("next at last question must clamp, got %d", idx)
	}

	session.Jump(-3)
	if idx := session.Snapshot().Index; idx != 0 {
		t.Fatalf("negative jump must clamp to 0, got %d", idx)
	}
}

func TestAnswerOverwriteAllowedInExamMode(t *testing.T) {
	session := newFixedSession(fiveQuestionContent())

	session.Select("B")
	session.Select("A")
	if got := session.Snapshot().Question.Selected; got != "A" {
		t.Fatalf("expected overwrite to A, got %q", got)
	}
	if session.Snapshot().Question.CorrectAnswer != "" {
		t.Fatalf("exam mode must not reveal the correct answer mid-session")
	}
}

func TestStudyModeFreezesAnswerAfterFeedback(t *testing.T) {
	content := fiveQuestionContent()
	content.Settings.Mode = domain.ModeStudy
	session := newFixedSession(content)

	session.Select("B")
	view := session.Snapshot()
	if !view.Question.FeedbackShown {
		t.Fatalf("study mode must reveal feedback on first selection")
	}
	if view.Question.CorrectAnswer != "A" {
		t.Fatalf("expected revealed correct answer A, got %q", view.Question.CorrectAnswer)
	}
	if view.Question.Explanation == "" {
		t.Fatalf("expected explanation revealed with feedback")
	}

	session.Select("C")
	if got := session.Snapshot().Question.Selected; got != "B" {
		t.Fatalf("answer must freeze after feedback, got %q", got)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	session := newFixedSession(fiveQuestionContent())
	session.Select("A")

	if _, ok := session.Submit(); !ok {
		t.Fatalf("first submit must produce a result")
	}
	if _, ok := session.Submit(); ok {
		t.Fatalf("second submit must be a no-op")
	}
	if !session.Tick() {
		t.Fatalf("tick after finish must report finished without a second emission")
	}

	// Finished sessions reject all further mutation.
	session.Select("B")
	session.Jump(3)
	view := session.Snapshot()
	if view.Index != 0 || view.Question.Selected != "A" {
		t.Fatalf("finished session mutated: %+v", view)
	}
}

func TestTimeoutTerminatesWithZeroScore(t *testing.T) {
	content := fiveQuestionContent()
	content.Settings.DurationMinutes = 0
	session := newFixedSession(content)

	if !session.Tick() {
		t.Fatalf("tick at zero remaining must finish the session")
	}
	result, ok := session.Result()
	if !ok {
		t.Fatalf("expected a compiled result after timeout")
	}
	if result.Score != 0 || result.TotalQuestions != 5 {
		t.Fatalf("expected score 0 of 5, got %d of %d", result.Score, result.TotalQuestions)
	}
	if len(result.Records) != 5 {
		t.Fatalf("expected one record per question, got %d", len(result.Records))
	}
	for _, record := range result.Records {
		if record.SelectedAnswer != "" || record.IsCorrect {
			t.Fatalf("timeout with no interaction must score all empty/incorrect: %+v", record)
		}
	}
	select {
	case <-session.Done():
	default:
		t.Fatalf("done channel must be closed after timeout")
	}
}

func TestTickCountsDown(t *testing.T) {
	content := fiveQuestionContent()
	content.Settings.DurationMinutes = 1
	session := newFixedSession(content)

	if session.Remaining() != 60 {
		t.Fatalf("expected 60s, got %d", session.Remaining())
	}
	session.Tick()
	if session.Remaining() != 59 {
		t.Fatalf("expected 59s after one tick, got %d", session.Remaining())
	}
}

func TestCompileResultScoring(t *testing.T) {
	questions := fiveQuestionContent().Questions
	answers := map[string]string{
		"0": "A", // correct
		"1": "X", // wrong
		"3": "A", // correct
		// 2 and 4 unanswered
	}
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Minute)

	result := app.CompileResult(questions, answers, app.User{Name: "Alice", Email: "a@x.com"}, start, end)

	if result.Score != 2 || result.TotalQuestions != 5 {
		t.Fatalf("expected score 2 of 5, got %d of %d", result.Score, result.TotalQuestions)
	}
	if result.Score < 0 || result.Score > result.TotalQuestions {
		t.Fatalf("score out of bounds: %+v", result)
	}
	if len(result.Answers) != 5 || len(result.Records) != 5 {
		t.Fatalf("expected exactly one entry per question, got %d/%d", len(result.Answers), len(result.Records))
	}
	if result.StartTime != "2025-06-01T09:00:00Z" || result.EndTime != "2025-06-01T09:04:00Z" {
		t.Fatalf("unexpected timestamps: %s .. %s", result.StartTime, result.EndTime)
	}
	if result.UserEmail != "a@x.com" || result.UserName != "Alice" {
		t.Fatalf("identity not carried into result: %+v", result)
	}
}

func newFixedSession(content domain.QuizContent) *app.Session {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return app.NewSessionWithClock("s1", app.User{Name: "Alice", Email: "a@x.com"},
		content, func() time.Time { return now }, rand.New(rand.NewSource(1)))
}

func fiveQuestionContent() domain.QuizContent {
	questions := make([]domain.Question, 0, 5)
	prompts := []string{"First?", "Second?", "Third?", "Fourth?", "Fifth?"}
	for i, prompt := range prompts {
		questions = append(questions, domain.Question{
			ID:            itoa(i),
			Prompt:        prompt,
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
			Explanation:   "A is the expected pick.",
		})
	}
	return domain.QuizContent{
		Settings: domain.QuizSettings{
			Title:           "Fixture Quiz",
			DurationMinutes: 10,
			Mode:            domain.ModeExam,
		},
		Questions: questions,
	}
}

func itoa(i int) string {
	return string(rune('0' + i))
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
