package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/engine"
	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/llm"
)

// APIKeyEnv is the environment variable read when --api-key is not given.
const APIKeyEnv = "OPENAI_API_KEY"

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	BoardOptions
	Model      string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	PromptOnly bool
}

// GenerateResult is the JSON output of the generate command.
type GenerateResult struct {
	Node       string `json:"node"`
	Prompt     string `json:"prompt"`
	Output     string `json:"output,omitempty"`
	Generation int64  `json:"generation,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "generate <node>",
		Short: "Stream a completion into a generator node",
		Long: `Fill the prompt template of a generator node with its labeled inputs,
stream a completion from an OpenAI-compatible endpoint into the node's
output and save the board.

The API key is read from --api-key or the ` + APIKeyEnv + ` environment
variable.

Examples:
  ggraph generate summary --db ./ggraph.db --board Poll
  ggraph generate summary --prompt-only --db ./ggraph.db --board Poll
  ggraph generate summary --base-url http://localhost:11434 --model llama3 --db ./ggraph.db --board Poll`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	opts.bindStoreFlags(cmd)
	opts.bindEngineFlags(cmd)
	cmd.Flags().StringVar(&opts.Model, "model", llm.DefaultModel, "model name")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", llm.DefaultBaseURL, "API base URL")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "API key (default $"+APIKeyEnv+")")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "limit for the whole completion")
	cmd.Flags().BoolVar(&opts.PromptOnly, "prompt-only", false, "print the filled prompt without generating")

	return cmd
}

func runGenerate(opts *GenerateOptions, id string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	client := llm.NewOpenAI(llm.Config{
		BaseURL: opts.BaseURL,
		APIKey:  apiKey,
		Model:   opts.Model,
		Timeout: opts.Timeout,
		Logger:  opts.logger(cmd.ErrOrStderr()),
	})

	gen := &streamOutcome{Generator: client}
	s, err := openSession(ctx, &opts.BoardOptions, cmd, engine.WithGenerator(gen))
	if err != nil {
		return err
	}
	defer s.close(cmd)

	prompt, err := s.engine.Prompt(id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluation, err.Error())
	}
	result := GenerateResult{Node: id, Prompt: prompt}

	if !opts.PromptOnly {
		if err := s.engine.Generate(ctx, id); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeEvaluation, err.Error())
		}
		if err := s.commit(ctx); err != nil {
			return err
		}
		if gen.err != nil {
			return formatter.Fail(ExitFailure, ErrCodeEvaluation, fmt.Sprintf("generation failed: %v", gen.err))
		}
		n, _ := s.doc.Node(id)
		result.Output = n.Output
		result.Generation = n.Generation
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	if opts.PromptOnly {
		fmt.Fprintln(w, result.Prompt)
		return nil
	}
	formatter.VerboseLog("Prompt: %s", result.Prompt)
	n, _ := s.doc.Node(id)
	return writeNodes(formatter, opts.Board, []ir.Node{n})
}

// streamOutcome keeps the error of the last stream so the command can
// report it. The engine itself only logs failed streams.
type streamOutcome struct {
	llm.Generator

	mu  sync.Mutex
	err error
}

func (g *streamOutcome) Stream(ctx context.Context, prompt string, onToken llm.TokenFunc) error {
	err := g.Generator.Stream(ctx, prompt, onToken)
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	return err
}
