package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var sheetName string

	cmd := &cobra.Command{
		Use:   "eval <workbook.json>",
		Short: "Evaluate a workbook and print per-line results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := loadCalculator(args[0])
			if err != nil {
				return err
			}

			names := calc.Workbook().Names()
			if sheetName != "" {
				names = []string{sheetName}
			}

			for _, name := range names {
				lines, err := calc.EvaluateSheet(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("evaluate %q: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", name)
				for _, line := range lines {
					rendered := line.Value.String()
					if rendered == "" {
						fmt.Fprintf(cmd.OutOrStdout(), "%4d | %s\n", line.ID, line.Raw)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%4d | %-40s = %s\n", line.ID, line.Raw, rendered)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "evaluate only the named sheet")
	return cmd
}
