package main

import (
	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Start wpslinks and perform the validation handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			binaryPath, _ := cmd.Flags().GetString("binary")
			configPath, _ := cmd.Flags().GetString("config")
			profile, _ := cmd.Flags().GetString("profile")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			options, err := profileOptionsFor(cfg, profile)
			if err != nil {
				return err
			}

			conn, err := connect(binaryPath, cfg, options)
			if err != nil {
				return err
			}
			defer conn.Close()

			dnsName, err := conn.server.GetDnsName()
			if err != nil {
				return err
			}
			osName, err := conn.server.GetOSName()
			if err != nil {
				return err
			}
			printf("connected: host=%s os=%s\n", dnsName, osName)
			return nil
		},
	}
	return cmd
}
