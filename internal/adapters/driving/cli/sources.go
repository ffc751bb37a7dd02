package cli

import (
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := build(cmd, nil)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		cmd.Printf("Config: %s\n\n", svc.ConfigPath)
		for _, src := range svc.Sources {
			state := "enabled"
			if !src.Enabled {
				state = "disabled"
			}
			cmd.Printf("%-20s %-10s %-15s %-8s ttl=%s\n", src.Key, src.Adapter, src.Record, state, src.TTL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
