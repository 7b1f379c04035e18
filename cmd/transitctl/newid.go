package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newIDCmd = &cobra.Command{
	Use:   "new-id",
	Short: "Ask the relay for an unused transfer ID",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := c.NewID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newIDCmd)
}
