package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	petalcalc "github.com/petal-labs/petalcalc"
)

// NewEvalCmd creates the "eval" subcommand.
func NewEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression...>",
		Short: "Evaluate one expression and print the result",
		Long: `Evaluate one expression and print the result.

Arguments are joined with spaces, so quoting is optional for expressions
without shell metacharacters. Exit code 2 means the expression is malformed,
3 means it could not be evaluated.`,
		Example: `  petalcalc eval "2 ** 10"
  petalcalc eval -- -7 // 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEval,
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	source := strings.Join(args, " ")
	return a.session(cmd.Context(), func() (int, error) {
		value, err := a.calc.Evaluate(source)
		if err != nil {
			return 1, evalExitError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), FormatResult(value))
		return 1, nil
	})
}

func evalExitError(err error) *ExitError {
	var evalErr *petalcalc.EvaluationError
	if errors.As(err, &evalErr) && evalErr.Stage == petalcalc.StageEval {
		return exitError(exitEval, "%v", err)
	}
	return exitError(exitParse, "%v", err)
}
