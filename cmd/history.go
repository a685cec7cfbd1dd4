package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the saved history.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig()
		if err != nil {
			return err
		}

		hist, err := openHistory(config)
		if err != nil {
			return err
		}

		first := hist.Start()
		for i, line := range hist.Lines() {
			fmt.Fprintf(cmd.OutOrStdout(), "% 5d  %s\n", first+i, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
