package cli

import (
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <workbook.json> <output.xlsx>",
		Short: "Evaluate a workbook and export results to an xlsx file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := loadCalculator(args[0])
			if err != nil {
				return err
			}
			if err := calc.ExportXLSX(cmd.Context(), args[1]); err != nil {
				return err
			}
			debugf("wrote %s", args[1])
			return nil
		},
	}
}
