package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sheets-quiz-service/internal/domain"
)

// ContentFetcher pulls quiz content from the backing store (the spreadsheet
// gateway, or the demo gateway).
type ContentFetcher interface {
	FetchQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error)
}

// QuizRepository caches fetched quiz content with a TTL to avoid hitting the
// spreadsheet API on every page load.
type QuizRepository struct {
	fetcher ContentFetcher
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewQuizRepository(fetcher ContentFetcher, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedContent),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[spreadsheetID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(spreadsheetID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[spreadsheetID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.fetcher.FetchQuiz(ctx, spreadsheetID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		// Zero TTL means caching is disabled.
		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[spreadsheetID] = cachedContent{
				content:   content,
				expiresAt: now.Add(r.ttlWithJitter()),
			}
			r.mu.Unlock()
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
