package main

import (
	"github.com/spf13/cobra"
)

func newShutdownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Connect to wpslinks and send a graceful shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			binaryPath, _ := cmd.Flags().GetString("binary")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := connect(binaryPath, cfg, nil)
			if err != nil {
				return err
			}
			if err := conn.server.Shutdown(); err != nil {
				return err
			}
			conn.Close()
			printf("shutdown sent\n")
			return nil
		},
	}
	return cmd
}
