package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

var (
	askDocument  string
	askQuestions []string
	askJSON      bool
	askMinimal   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer questions about a document",
	Long: `Fetches the document, indexes it and answers each question from its content.
Questions can be given with -q (repeatable) or as arguments; answers keep
the order the questions were given in.`,
	Example: `  sercha-docqa ask --doc https://example.com/policy.pdf -q "What is the grace period?"
  sercha-docqa ask --doc https://example.com/policy.pdf --json "What is the waiting period?"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDocument, "doc", "d", "", "URL of the document to query")
	askCmd.Flags().StringArrayVarP(&askQuestions, "question", "q", nil, "question to answer (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().BoolVar(&askMinimal, "minimal", false, "with --json, output answers only")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	if askDocument == "" {
		return errors.New("--doc is required")
	}

	questions := make([]string, 0, len(askQuestions)+len(args))
	questions = append(questions, askQuestions...)
	questions = append(questions, args...)
	if len(questions) == 0 {
		return errors.New("at least one question is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := answerService.Answer(ctx, domain.QueryRequest{
		Documents: askDocument,
		Questions: questions,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		mode := domain.ResponseModeExtended
		if askMinimal {
			mode = domain.ResponseModeMinimal
		}
		return outputAnswersJSON(cmd, result.Response(mode))
	}

	outputAnswersText(cmd, result)
	return nil
}

func outputAnswersJSON(cmd *cobra.Command, resp domain.QueryResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswersText(cmd *cobra.Command, result *domain.QueryResult) {
	cached := ""
	if result.CacheHit {
		cached = ", cached"
	}
	cmd.Printf("Document %s (index: %s%s)\n", result.DocumentID, result.IndexBackend, cached)

	for i, a := range result.Answers {
		cmd.Println()
		cmd.Printf("[%d] %s\n", i+1, a.Question)
		cmd.Printf("    %s\n", a.Text)
		if a.Placeholder {
			cmd.Printf("    failed: %s\n", a.Failure)
			continue
		}
		cmd.Printf("    confidence %.2f, sources: %s\n", a.Confidence, a.SourceSummary())
	}

	cmd.Println()
	cmd.Printf("Answered %d question(s) in %s\n", len(result.Answers), result.ProcessingTime.Round(time.Millisecond))
}
