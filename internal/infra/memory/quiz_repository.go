package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-live-service/internal/domain"
)

// QuizLoader fetches quiz definitions from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, code string) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions with TTL so activating questions by
// index does not hit the backing store every time.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	if quiz, ok := r.cached(code); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		if quiz, ok := r.cached(code); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[code] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz so the next read reloads it.
func (r *QuizRepository) Invalidate(_ context.Context, code string) error {
	r.mu.Lock()
	delete(r.cache, code)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) cached(code string) (domain.Quiz, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[code]; ok && entry.expiresAt.After(now) {
		return entry.quiz, true
	}
	return domain.Quiz{}, false
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
// Questions whose correct option matches no option are rejected at load time.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, code string) (domain.Quiz, error) {
	quiz, ok := l.quizzes[code]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	for _, q := range quiz.Questions {
		if err := q.Validate(); err != nil {
			return domain.Quiz{}, err
		}
	}
	return quiz, nil
}

// Codes lists the quiz codes known to the loader.
func (l *StaticQuizLoader) Codes() []string {
	codes := make([]string, 0, len(l.quizzes))
	for code := range l.quizzes {
		codes = append(codes, code)
	}
	return codes
}
