package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-tracker/internal/export"
)

func newExtractCommand(g *globalFlags) *cobra.Command {
	var xlsxOut string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Run the full extraction pipeline over one contract and print the result as JSON",
		Example: `  contractctl extract 계약서.pdf
  contractctl extract 계약서.hwp --xlsx 일정.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, procErr := a.Processor.ProcessFile(cmd.Context(), args[0])
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if procErr != nil {
				return procErr
			}

			if xlsxOut != "" && res.ContractSchedule != nil {
				data, err := export.ScheduleWorkbook(*res.ContractSchedule, res.TaskList)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxOut, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxOut, err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", xlsxOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "also write the schedule workbook to this path")
	return cmd
}
