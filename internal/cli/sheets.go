package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSheetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <workbook.json>",
		Short: "List the worksheets in a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := loadCalculator(args[0])
			if err != nil {
				return err
			}
			for i, name := range calc.Workbook().Names() {
				ws, _ := calc.Workbook().Sheet(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%d lines)\n", i, name, len(ws.Lines()))
			}
			return nil
		},
	}
}
