// Package analysis runs the analyze use case: validate, look up the cache,
// ask the model, parse its reply and store valid results.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/bryanwahyu/unitecon/internal/application"
	domain "github.com/bryanwahyu/unitecon/internal/domain/analysis"
	"github.com/bryanwahyu/unitecon/internal/logging"
)

const DefaultTTL = 60 * time.Minute

// Service is safe for concurrent use once its fields are set.
// Archive and Events are optional.
type Service struct {
	Cache   domain.Cache
	Prompts domain.PromptBuilder
	Gateway domain.Gateway
	Parser  domain.ResponseParser
	Archive domain.Archive
	Events  domain.EventPublisher
	Clock   application.Clock
	Log     *zap.Logger

	TTL time.Duration
	// Dedupe collapses concurrent misses for the same key into one model call.
	Dedupe bool

	inflight singleflight.Group
}

// Outcome is a successful analysis, fresh or cached.
type Outcome struct {
	RequestID string
	CacheKey  string
	Result    domain.Result
	FromCache bool
	At        time.Time
}

// Analyze takes the raw request body. Errors are ErrRequestTooLarge,
// ErrMalformedRequest, *ValidationError or *InternalError; a degraded model
// reply is not an error.
func (s *Service) Analyze(ctx context.Context, body []byte, lang language.Tag) (Outcome, error) {
	start := s.now()
	requestID := domain.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if err := CheckSize(len(body)); err != nil {
		requestsTotal.WithLabelValues(outcomeTooLarge).Inc()
		return Outcome{}, err
	}
	raw, err := DecodeRaw(body)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeBadJSON).Inc()
		return Outcome{}, err
	}
	req, err := Validate(raw, lang)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeInvalid).Inc()
		return Outcome{}, err
	}

	key := req.CacheKey()
	log := s.logger().With(zap.String("request_id", requestID), zap.String("cache_key", key))

	if r, ok := s.lookup(ctx, log, key); ok {
		out := Outcome{RequestID: requestID, CacheKey: key, Result: r, FromCache: true, At: s.now()}
		requestsTotal.WithLabelValues(outcomeOK).Inc()
		s.publish(ctx, log, out, start)
		return out, nil
	}

	r, err := s.produce(ctx, log, req, key, requestID)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeInternal).Inc()
		log.Error("analysis failed",
			zap.Error(err),
			zap.String("kind", domain.UpstreamKind(err)),
			zap.String("startup_idea_preview", logging.Preview(req.StartupIdea)),
		)
		return Outcome{}, &domain.InternalError{RequestID: requestID, Err: err}
	}

	if r.Degraded() {
		requestsTotal.WithLabelValues(outcomeDegraded).Inc()
	} else {
		requestsTotal.WithLabelValues(outcomeOK).Inc()
	}
	out := Outcome{RequestID: requestID, CacheKey: key, Result: r, At: s.now()}
	s.publish(ctx, log, out, start)
	return out, nil
}

// lookup never fails the request; a broken cache reads as a miss.
func (s *Service) lookup(ctx context.Context, log *zap.Logger, key string) (domain.Result, bool) {
	r, ok, err := s.Cache.Get(ctx, key)
	switch {
	case err != nil:
		cacheTotal.WithLabelValues(cacheResultError).Inc()
		log.Warn("cache read failed", zap.Error(err))
		return nil, false
	case ok:
		cacheTotal.WithLabelValues(cacheResultHit).Inc()
		log.Debug("cache hit")
		return r, true
	default:
		cacheTotal.WithLabelValues(cacheResultMiss).Inc()
		return nil, false
	}
}

func (s *Service) produce(ctx context.Context, log *zap.Logger, req domain.Request, key, requestID string) (domain.Result, error) {
	if !s.Dedupe {
		return s.generate(ctx, log, req, key, requestID)
	}
	// the shared call must outlive any single caller going away
	shared := context.WithoutCancel(ctx)
	v, err, wasShared := s.inflight.Do(key, func() (any, error) {
		return s.generate(shared, log, req, key, requestID)
	})
	if wasShared {
		cacheTotal.WithLabelValues(cacheResultShared).Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.(domain.Result), nil
}

// generate is the miss path: prompt, one model call, parse, store.
func (s *Service) generate(ctx context.Context, log *zap.Logger, req domain.Request, key, requestID string) (domain.Result, error) {
	prompt := s.Prompts.Build(req)

	t0 := s.now()
	raw, err := s.Gateway.Send(ctx, prompt.System, prompt.User)
	upstreamDuration.Observe(s.now().Sub(t0).Seconds())
	if err != nil {
		upstreamErrors.WithLabelValues(domain.UpstreamKind(err)).Inc()
		return nil, err
	}

	r := s.Parser.Parse(raw)
	if r.Degraded() {
		s.archive(ctx, log, domain.DegradedRecord{
			RequestID:   requestID,
			CacheKey:    key,
			ReceivedAt:  s.now().UTC(),
			RawResponse: raw,
		})
		return r, nil
	}

	if err := s.Cache.Put(ctx, key, r, s.ttl()); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return r, nil
}

func (s *Service) archive(ctx context.Context, log *zap.Logger, rec domain.DegradedRecord) {
	if s.Archive == nil {
		return
	}
	if err := s.Archive.SaveDegraded(ctx, rec); err != nil {
		log.Warn("archiving degraded response failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, out Outcome, start time.Time) {
	if s.Events == nil {
		return
	}
	ev := domain.Event{
		Type:       domain.EventAnalysisCompleted,
		RequestID:  out.RequestID,
		CacheKey:   out.CacheKey,
		FromCache:  out.FromCache,
		Degraded:   out.Result.Degraded(),
		DurationMS: out.At.Sub(start).Milliseconds(),
		At:         out.At.UTC(),
	}
	if err := s.Events.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("publishing analysis event failed", zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
