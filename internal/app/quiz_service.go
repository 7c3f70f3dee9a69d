package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheets-quiz-service/internal/domain"
)

// Gateway is the spreadsheet boundary: quiz content and allowlist reads,
// attempt counting over prior result rows, and the result append.
type Gateway interface {
	FetchQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error)
	FetchAllowlist(ctx context.Context, spreadsheetID string) ([]string, error)
	CountAttempts(ctx context.Context, spreadsheetID, email string) (int, error)
	AppendResult(ctx context.Context, spreadsheetID string, result domain.QuizResult) error
}

// QuizRepository serves quiz content on the read path, typically with a cache
// in front of the gateway.
type QuizRepository interface {
	GetQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error)
}

// SessionRepository tracks live sessions so a user cannot run two attempts at
// once (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Register(email string, s *Session) bool
	Get(email string) (*Session, bool)
	Remove(email string)
}

// AttemptLedger reserves a single attempt slot per (spreadsheet, email). A
// false return means the slot was already taken. Release gives the slot back
// when the result never landed, so a failed save does not burn the attempt.
// Optional: without one, two near-simultaneous Exam submissions can still
// race past the attempt count.
type AttemptLedger interface {
	Reserve(ctx context.Context, spreadsheetID, email string) (bool, error)
	Release(ctx context.Context, spreadsheetID, email string) error
}

// QuizService contains the quiz use cases: admission-gated content release,
// live session management, and admission-gated result acceptance.
type QuizService struct {
	spreadsheetID string
	quizzes       QuizRepository
	gateway       Gateway
	sessions      SessionRepository
	ledger        AttemptLedger // may be nil
	now           func() time.Time
}

func NewQuizService(spreadsheetID string, quizzes QuizRepository, gateway Gateway, sessions SessionRepository, ledger AttemptLedger) *QuizService {
	return NewQuizServiceWithClock(spreadsheetID, quizzes, gateway, sessions, ledger, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic window checks.
func NewQuizServiceWithClock(spreadsheetID string, quizzes QuizRepository, gateway Gateway, sessions SessionRepository, ledger AttemptLedger, now func() time.Time) *QuizService {
	return &QuizService{
		spreadsheetID: spreadsheetID,
		quizzes:       quizzes,
		gateway:       gateway,
		sessions:      sessions,
		ledger:        ledger,
		now:           now,
	}
}

// GetQuiz releases quiz content to a requester, or explains why not. A
// rejection carries no partial data.
func (s *QuizService) GetQuiz(ctx context.Context, email string) (domain.QuizContent, domain.Admission, error) {
	content, err := s.quizzes.GetQuiz(ctx, s.spreadsheetID)
	if err != nil {
		return domain.QuizContent{}, domain.Admission{}, err
	}
	admission, err := s.admit(ctx, content.Settings, email, true)
	if err != nil {
		return domain.QuizContent{}, domain.Admission{}, err
	}
	if !admission.Allowed {
		return domain.QuizContent{}, admission, nil
	}
	return content, admission, nil
}

// StartSession admits the user and opens a live session for them. At most one
// live session per email is allowed at a time.
func (s *QuizService) StartSession(ctx context.Context, user User) (*Session, domain.Admission, error) {
	content, admission, err := s.GetQuiz(ctx, user.Email)
	if err != nil || !admission.Allowed {
		return nil, admission, err
	}
	session := NewSession(uuid.NewString(), user, content)
	if user.Email != "" && !s.sessions.Register(strings.ToLower(user.Email), session) {
		return nil, admission, domain.ErrAttemptInProgress
	}
	return session, admission, nil
}

// CloseSession drops the live-session registration for a user.
func (s *QuizService) CloseSession(user User) {
	if user.Email != "" {
		s.sessions.Remove(strings.ToLower(user.Email))
	}
}

// SubmitResult re-validates admission against freshly fetched settings and
// appends the result row. The window check is deliberately skipped here: a
// quiz may close while an admitted attempt is still running. Allowlist and
// single-attempt checks do re-run, closing the gap where a client fetched
// content before either changed.
func (s *QuizService) SubmitResult(ctx context.Context, result domain.QuizResult) (domain.Admission, error) {
	content, err := s.gateway.FetchQuiz(ctx, s.spreadsheetID)
	if err != nil {
		return domain.Admission{}, err
	}
	admission, err := s.admit(ctx, content.Settings, result.UserEmail, false)
	if err != nil {
		return domain.Admission{}, err
	}
	if !admission.Allowed {
		return admission, nil
	}
	reserved := false
	if s.ledger != nil && content.Settings.Mode == domain.ModeExam && result.UserEmail != "" {
		reserved, err = s.ledger.Reserve(ctx, s.spreadsheetID, result.UserEmail)
		if err != nil {
			return domain.Admission{}, fmt.Errorf("reserve attempt: %w", err)
		}
		if !reserved {
			return domain.RejectCompleted("you have already completed this quiz"), nil
		}
	}
	if err := s.gateway.AppendResult(ctx, s.spreadsheetID, result); err != nil {
		// No row was stored, so the slot must not stay claimed: the user
		// gets to retry the save.
		if reserved {
			if relErr := s.ledger.Release(ctx, s.spreadsheetID, result.UserEmail); relErr != nil {
				log.Printf("release attempt slot for %s: %v", result.UserEmail, relErr)
			}
		}
		return admission, fmt.Errorf("append result: %w", err)
	}
	return admission, nil
}

// admit runs the admission checks in order, short-circuiting on the first
// rejection: allowlist, availability window (read path only), single attempt.
func (s *QuizService) admit(ctx context.Context, settings domain.QuizSettings, email string, checkWindow bool) (domain.Admission, error) {
	if settings.AllowlistEnabled {
		allowlist, err := s.gateway.FetchAllowlist(ctx, s.spreadsheetID)
		if err != nil {
			return domain.Admission{}, fmt.Errorf("fetch allowlist: %w", err)
		}
		if len(allowlist) > 0 && !allowlisted(allowlist, email) {
			return domain.Reject("this quiz is limited to invited participants"), nil
		}
	}

	if checkWindow {
		now := s.now()
		if from, ok := settings.OpensAt(); ok && now.Before(from) {
			return domain.Reject("this quiz is not open yet"), nil
		}
		if until, ok := settings.ClosesAt(); ok && now.After(until) {
			return domain.Reject("this quiz is closed"), nil
		}
	}

	if settings.Mode == domain.ModeExam && email != "" {
		attempts, err := s.gateway.CountAttempts(ctx, s.spreadsheetID, email)
		if err != nil {
			return domain.Admission{}, fmt.Errorf("count attempts: %w", err)
		}
		if attempts >= 1 {
			return domain.RejectCompleted("you have already completed this quiz"), nil
		}
	}

	return domain.Admit(), nil
}

func allowlisted(allowlist []string, email string) bool {
	for _, allowed := range allowlist {
		if strings.EqualFold(allowed, email) {
			return true
		}
	}
	return false
}
