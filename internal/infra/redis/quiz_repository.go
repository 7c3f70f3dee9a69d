package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sheets-quiz-service/internal/domain"
)

// ContentFetcher pulls quiz content from the backing store (the spreadsheet
// gateway).
type ContentFetcher interface {
	FetchQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content in Redis and falls back to the fetcher on
// a miss. Content is stored as: SET quiz:{spreadsheetID}:content {json}
type QuizRepository struct {
	client  *redis.Client
	fetcher ContentFetcher
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
}

func NewQuizRepository(client *redis.Client, fetcher ContentFetcher, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client:  client,
		fetcher: fetcher,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error) {
	key := r.contentKey(spreadsheetID)

	if content, ok := r.cached(ctx, key); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(spreadsheetID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.cached(ctx, key); ok {
			return content, nil
		}

		content, err := r.fetcher.FetchQuiz(ctx, spreadsheetID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		// A zero TTL would make Redis keep the key forever; treat it as
		// caching disabled instead.
		if r.ttl > 0 {
			if raw, err := json.Marshal(content); err == nil {
				_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
			}
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *QuizRepository) cached(ctx context.Context, key string) (domain.QuizContent, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.QuizContent{}, false
	}
	return content, true
}

func (r *QuizRepository) contentKey(spreadsheetID string) string {
	return "quiz:" + spreadsheetID + ":content"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
