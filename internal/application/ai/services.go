package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
)

// Service wraps a model client with a per-call deadline and latency logging.
// It satisfies ai.Client itself so it can be handed to the advisory service.
type Service struct {
	client  ai.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewService(client ai.Client, timeout time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, timeout: timeout, log: log}
}

func (s *Service) AnalyzeDocument(ctx context.Context, req ai.AnalysisRequest) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := s.client.AnalyzeDocument(ctx, req)
	fields := []zap.Field{
		zap.String("framework", req.FrameworkName),
		zap.Int("rules", len(req.Rules)),
		zap.Int("document_len", len(req.DocumentText)),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		s.log.Warn("model call failed", append(fields, zap.Error(err))...)
		return "", err
	}
	s.log.Debug("model call completed", append(fields, zap.Int("response_len", len(out)))...)
	return out, nil
}
