package ai

import (
	"context"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// AnalysisRequest carries everything the model needs to review one document.
type AnalysisRequest struct {
	FrameworkName string
	Rules         []compliance.Rule
	DocumentText  string
}

// Client returns the model's raw JSON answer; callers own parsing.
type Client interface {
	AnalyzeDocument(ctx context.Context, req AnalysisRequest) (string, error)
}
