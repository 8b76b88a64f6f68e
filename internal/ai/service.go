package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/semaphore"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
)

// ChatFallbackMessage is answered whenever the advisor cannot be reached.
const ChatFallbackMessage = "Desculpe, tive um problema ao analisar seus dados agora. Tente novamente em instantes."

const DefaultMaxConcurrency = 3

// Service fronts a Backend with a concurrency limit, an extraction cache and
// the failure degradation the UI expects: extraction failures yield no items
// and chat failures yield ChatFallbackMessage. Insight failures are returned
// so the refresh controller can keep its previous list.
type Service struct {
	backend Backend
	sem     *semaphore.Weighted
	cache   *cache.LRUCache[Extraction]
	logger  *log.Logger
}

type ServiceOption func(*Service)

func WithMaxConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithExtractionCache memoizes successful extractions by document digest.
func WithExtractionCache(c *cache.LRUCache[Extraction]) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func WithServiceLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) { s.logger = log.OrNop(logger).WithComponent(log.ComponentAI) }
}

func NewService(backend Backend, opts ...ServiceOption) *Service {
	s := &Service{
		backend: backend,
		sem:     semaphore.NewWeighted(DefaultMaxConcurrency),
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Name() string { return s.backend.Name() }

func (s *Service) ExtractTransactions(ctx context.Context, doc Document) (Extraction, error) {
	if len(doc.Data) == 0 {
		return Extraction{}, ErrEmptyDocument
	}

	key := DocumentKey(doc)
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Extraction served from cache", "digest", key[:12])
			return cloneExtraction(hit), nil
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Extraction{}, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	out, err := s.backend.ExtractTransactions(ctx, doc)
	if err != nil {
		s.logger.WarnContext(ctx, "Document extraction failed, returning no items",
			log.FieldOperation, log.OpExtract,
			log.FieldBackend, s.backend.Name(),
			"mime_type", doc.MimeType,
			log.FieldError, err)
		return Extraction{Items: []ExtractedItem{}}, nil
	}
	if out.Items == nil {
		out.Items = []ExtractedItem{}
	}

	s.logger.InfoContext(ctx, "Document extracted",
		log.FieldBackend, s.backend.Name(),
		"items", len(out.Items),
		"bank", out.BankName,
		log.FieldDuration, time.Since(start).Milliseconds())

	if s.cache != nil {
		s.cache.Set(key, cloneExtraction(out))
	}
	return out, nil
}

func (s *Service) GenerateInsights(ctx context.Context, txs []core.Transaction) ([]core.Insight, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	insights, err := s.backend.GenerateInsights(ctx, txs)
	if err != nil {
		s.logger.WarnContext(ctx, "Insight generation failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldBackend, s.backend.Name(),
			log.FieldError, err)
		return nil, err
	}
	return insights, nil
}

func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return ChatFallbackMessage, nil
	}
	defer s.sem.Release(1)

	reply, err := s.backend.Chat(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "Chat failed, answering with fallback",
			log.FieldOperation, log.OpChat,
			log.FieldBackend, s.backend.Name(),
			log.FieldError, err)
		return ChatFallbackMessage, nil
	}
	return reply, nil
}

// DocumentKey is the hex SHA-256 of the media type and document bytes.
func DocumentKey(doc Document) string {
	h := sha256.New()
	h.Write([]byte(doc.MimeType))
	h.Write([]byte{0})
	h.Write(doc.Data)
	return hex.EncodeToString(h.Sum(nil))
}

func cloneExtraction(e Extraction) Extraction {
	items := make([]ExtractedItem, len(e.Items))
	for i, it := range e.Items {
		if it.Installments != nil {
			inst := *it.Installments
			it.Installments = &inst
		}
		items[i] = it
	}
	e.Items = items
	return e
}
