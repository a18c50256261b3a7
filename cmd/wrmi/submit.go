package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Open a session and submit a block of compiler source",
		RunE: func(cmd *cobra.Command, args []string) error {
			binaryPath, _ := cmd.Flags().GetString("binary")
			configPath, _ := cmd.Flags().GetString("config")
			profile, _ := cmd.Flags().GetString("profile")

			if file == "" {
				return fmt.Errorf("submit: --file is required")
			}
			code, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("submit: reading %s: %w", file, err)
			}

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

			session, err := conn.server.CreateSession()
			if err != nil {
				return fmt.Errorf("submit: createSession: %w", err)
			}
			if len(options) > 0 {
				if err := session.InitWithOptions(options); err != nil {
					return fmt.Errorf("submit: initWithOptions: %w", err)
				}
			} else {
				if err := session.Init(); err != nil {
					return fmt.Errorf("submit: init: %w", err)
				}
			}

			returnCode, err := session.SubmitText(string(code))
			if err != nil {
				return fmt.Errorf("submit: submitText: %w", err)
			}
			printf("submitted %s: return_code=%d\n", file, returnCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a file of compiler source to submit (required)")
	return cmd
}
