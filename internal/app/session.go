package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sheets-quiz-service/internal/domain"
)

// User identifies the test-taker owning a session.
type User struct {
	Name  string
	Email string
}

// State is the lifecycle position of a session.
type State int

const (
	// StateActive accepts navigation, answers and ticks.
	StateActive State = iota
	// StateFinished is terminal and rejects all further mutation.
	StateFinished
)

// Session is one test-taker's run through a question set. It owns question
// ordering, answer capture, the countdown and termination. All methods are
// safe to call from the timer goroutine and a request handler concurrently.
type Session struct {
	id        string
	user      User
	settings  domain.QuizSettings
	questions []domain.Question

	mu        sync.Mutex
	state     State
	idx       int
	answers   map[string]string
	feedback  map[string]bool
	remaining int
	startedAt time.Time
	result    domain.QuizResult

	now  func() time.Time
	done chan struct{}
}

// NewSession initializes an active session: shuffles are applied exactly once
// here, never on later reads.
func NewSession(id string, user User, content domain.QuizContent) *Session {
	return NewSessionWithClock(id, user, content, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithClock allows deterministic timestamps and ordering in tests.
func NewSessionWithClock(id string, user User, content domain.QuizContent, now func() time.Time, rnd *rand.Rand) *Session {
	questions := make([]domain.Question, len(content.Questions))
	copy(questions, content.Questions)

	if content.Settings.ShuffleQuestions {
		rnd.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if content.Settings.ShuffleOptions {
		for i := range questions {
			options := make([]string, len(questions[i].Options))
			copy(options, questions[i].Options)
			rnd.Shuffle(len(options), func(a, b int) {
				options[a], options[b] = options[b], options[a]
			})
			questions[i].Options = options
		}
	}
	if n := content.Settings.QuestionCount; n > 0 && n < len(questions) {
		questions = questions[:n]
	}

	return &Session{
		id:        id,
		user:      user,
		settings:  content.Settings,
		questions: questions,
		answers:   make(map[string]string),
		feedback:  make(map[string]bool),
		remaining: content.Settings.DurationMinutes * 60,
		startedAt: now(),
		now:       now,
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) User() User { return s.user }

// Settings returns the settings snapshot the session was built from.
func (s *Session) Settings() domain.QuizSettings { return s.settings }

// Start runs the countdown: one tick per second while the session is active.
// The ticker stops as soon as the session finishes, from either trigger.
func (s *Session) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.Tick() {
					return
				}
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Tick decrements remaining time by one second and reports whether the session
// has finished. Reaching zero terminates through the same path a manual submit
// uses.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return true
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finishLocked()
	}
	return s.state == StateFinished
}

// Select records an option for the current question, overwriting any prior
// choice. In Study mode a question freezes once its feedback has been shown,
// and the first selection reveals correctness immediately.
func (s *Session) Select(option string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || len(s.questions) == 0 {
		return
	}
	id := s.questions[s.idx].ID
	if s.settings.Mode == domain.ModeStudy && s.feedback[id] {
		return
	}
	s.answers[id] = option
	if s.settings.Mode == domain.ModeStudy {
		s.feedback[id] = true
	}
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() { s.Jump(s.index() + 1) }

// Prev moves back one question, clamped at the first one.
func (s *Session) Prev() { s.Jump(s.index() - 1) }

// Jump moves directly to an arbitrary question index, clamped to the valid
// range. Navigation never touches stored answers.
func (s *Session) Jump(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	if i < 0 {
		i = 0
	}
	if last := len(s.questions) - 1; i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	s.idx = i
}

func (s *Session) index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// Remaining returns the countdown value in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Submit terminates the session. It is idempotent: the second invocation,
// whether from the user or the timer, reports false and emits nothing.
func (s *Session) Submit() (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return domain.QuizResult{}, false
	}
	s.finishLocked()
	return s.result, true
}

// finishLocked is the single one-way transition into StateFinished.
func (s *Session) finishLocked() {
	s.state = StateFinished
	s.result = CompileResult(s.questions, s.answers, s.user, s.startedAt, s.now())
	close(s.done)
}

// Done is closed once the session has finished, from either trigger.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the compiled result once the session has finished.
func (s *Session) Result() (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished {
		return domain.QuizResult{}, false
	}
	return s.result, true
}

// QuestionView is what a client may see of the current question. Correctness
// stays hidden in Exam mode and, in Study mode, until feedback is shown.
type QuestionView struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	Selected      string   `json:"selected,omitempty"`
	FeedbackShown bool     `json:"feedbackShown,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// SessionView is a point-in-time snapshot for rendering.
type SessionView struct {
	Title     string       `json:"title"`
	Mode      domain.Mode  `json:"mode"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Remaining int          `json:"remaining"`
	Finished  bool         `json:"finished"`
	Answered  []bool       `json:"answered"`
	Question  QuestionView `json:"question"`
}

// Snapshot renders the current session state.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		Title:     s.settings.Title,
		Mode:      s.settings.Mode,
		Index:     s.idx,
		Total:     len(s.questions),
		Remaining: s.remaining,
		Finished:  s.state == StateFinished,
		Answered:  make([]bool, len(s.questions)),
	}
	for i, q := range s.questions {
		_, view.Answered[i] = s.answers[q.ID]
	}
	if len(s.questions) == 0 {
		return view
	}

	q := s.questions[s.idx]
	view.Question = QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  q.Options,
		Selected: s.answers[q.ID],
	}
	if s.settings.Mode == domain.ModeStudy && s.feedback[q.ID] {
		view.Question.FeedbackShown = true
		view.Question.CorrectAnswer = q.CorrectAnswer
		view.Question.Explanation = q.Explanation
	}
	return view
}
