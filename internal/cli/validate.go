package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Board string
}

// BoardFindings holds the validation findings of one board.
type BoardFindings struct {
	Name     string                     `json:"name"`
	Valid    bool                       `json:"valid"`
	Findings []compiler.ValidationError `json:"findings"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Boards []BoardFindings `json:"boards"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Check boards for structural and wiring problems",
		Long: `Validate the boards declared in a CUE file or directory.

Errors (duplicate ids, dangling connectors, contributions that do not fit
the value type) make a board invalid. Warnings (shadowed labels, unbound
prompt placeholders, cycles) are reported but do not fail the command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Board, "board", "", "validate only the named board")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadBoards(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}

	specs := loaded.Boards
	if opts.Board != "" {
		spec, err := compiler.SelectBoard(specs, opts.Board)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeSelect, err.Error())
		}
		specs = []*compiler.BoardSpec{spec}
	}

	result := ValidationResult{Valid: true}
	errorCount := 0
	for _, spec := range specs {
		findings := compiler.Validate(spec.Board)
		bf := BoardFindings{Name: spec.Name, Valid: true, Findings: findings}
		if bf.Findings == nil {
			bf.Findings = []compiler.ValidationError{}
		}
		for _, f := range findings {
			if f.IsError() {
				bf.Valid = false
				errorCount++
			}
		}
		result.Valid = result.Valid && bf.Valid
		result.Boards = append(result.Boards, bf)
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_INVALID",
				Message: fmt.Sprintf("%d validation error(s)", errorCount),
			}
		}
		if err := writeJSON(formatter.Writer, resp); err != nil {
			return err
		}
	} else {
		writeValidationText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errorCount))
	}
	return nil
}

func writeValidationText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	for _, b := range result.Boards {
		mark := "✓"
		if !b.Valid {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, b.Name)
		for _, finding := range b.Findings {
			fmt.Fprintf(w, "  %s %s\n", finding.Level, finding.Error())
		}
	}
	if result.Valid {
		fmt.Fprintln(w, "\nAll boards valid")
	}
}
