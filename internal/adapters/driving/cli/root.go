package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// version is set at startup from the build version
var version = "dev"

var (
	answerService driving.AnswerService
	serveFunc     func(ctx context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-docqa",
	Short: "Answer questions about a document",
	Long: `sercha-docqa fetches a document by URL, indexes it and answers
natural-language questions using only the document's content.

Run "serve" to expose the HTTP API or "ask" to query a document once.`,
	SilenceUsage: true,
}

// Services holds the dependencies the commands run against.
type Services struct {
	// AnswerService answers questions for the ask command
	AnswerService driving.AnswerService
	// Serve runs the HTTP API until it stops
	Serve func(ctx context.Context) error
}

// SetServices configures the services used by the commands.
func SetServices(s Services) {
	answerService = s.AnswerService
	serveFunc = s.Serve
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with the given arguments.
// A nil args slice uses the process arguments.
func Execute(ctx context.Context, args []string) error {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	return rootCmd.ExecuteContext(ctx)
}
