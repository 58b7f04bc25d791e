package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalcalc/expr"
)

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <expression...>",
		Short: "Parse an expression without evaluating it",
		Long:  "Parse an expression and print it fully parenthesised. Exit code 2 means the expression is malformed.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().Bool("silent", false, "Print nothing on success")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	silent, _ := cmd.Flags().GetBool("silent")
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source := strings.Join(args, " ")
	if silent {
		if err := expr.ValidateSyntaxWithLimit(source, cfg.Limits.MaxDepth); err != nil {
			return exitError(exitParse, "%v", err)
		}
		return nil
	}

	tree, err := expr.ParseWithLimit(source, cfg.Limits.MaxDepth)
	if err != nil {
		return exitError(exitParse, "%v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tree.String())
	return nil
}
