package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// mockAnswerService records the last request and answers every question
type mockAnswerService struct {
	lastRequest *domain.QueryRequest
	err         error
}

func (m *mockAnswerService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastRequest = &req
	if m.err != nil {
		return nil, m.err
	}

	result := &domain.QueryResult{
		DocumentID:   "doc-1",
		IndexBackend: "memory",
		Answers:      make([]*domain.Answer, len(req.Questions)),
	}
	for i, q := range req.Questions {
		result.Answers[i] = &domain.Answer{
			Question:   q,
			Text:       fmt.Sprintf("answer %d", i+1),
			Confidence: 0.75,
			SourceChunks: []*domain.Chunk{
				{ID: "c1", SequenceIndex: i, Page: 1},
			},
		}
	}
	return result, nil
}

// setupTestServices installs a mock answer service and resets command state
func setupTestServices() (*mockAnswerService, func()) {
	svc := &mockAnswerService{}
	oldAnswer, oldServe := answerService, serveFunc
	answerService = svc
	resetAskFlags()

	return svc, func() {
		answerService, serveFunc = oldAnswer, oldServe
		resetAskFlags()
		rootCmd.SetArgs(nil)
	}
}

// resetAskFlags clears flag values left over from a previous Execute
func resetAskFlags() {
	askDocument = ""
	askJSON = false
	askMinimal = false
	if f := askCmd.Flags().Lookup("question"); f != nil {
		_ = f.Value.(pflag.SliceValue).Replace(nil)
	}
}

var errServiceDown = errors.New("service down")
