package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvu/scansync/internal/ado"
	"github.com/nvu/scansync/internal/credential"
	"github.com/nvu/scansync/internal/logging"
	"github.com/nvu/scansync/internal/sync"
)

var authToken string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the tracker bearer token",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the tracker token in the system keyring",
	Long: `Store a personal access token for the work-tracking service in the
system keyring. The token is read from --token, or from stdin when the
flag is omitted. CI environments can skip this and set SCANSYNC_TOKEN
instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(authToken)
		if token == "" {
			fmt.Fprint(os.Stderr, "Token: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		if err := credential.Set(credential.TokenKey, token); err != nil {
			return err
		}
		fmt.Println("token stored")
		return nil
	},
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the token against the configured tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logging.New(cfg.Log.Format, cfg.Log.Level)

		token, err := credential.Token()
		if err != nil {
			return err
		}

		client := ado.NewClient(cfg.Tracker.CollectionURL, cfg.Tracker.Project, token)
		syncer := sync.New(client, log)

		// System.Title exists in every process template, so a successful
		// lookup proves both connectivity and authorization.
		field, err := syncer.FieldGet(cmd.Context(), "System.Title")
		if err != nil {
			return fmt.Errorf("tracker check failed: %w", err)
		}

		fmt.Printf("ok: connected to %s project %s (field %q resolved)\n",
			cfg.Tracker.CollectionURL, client.Project(), field.ReferenceName)
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored tracker token from the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(credential.TokenKey); err != nil {
			return err
		}
		fmt.Println("token removed")
		return nil
	},
}

func init() {
	authSetCmd.Flags().StringVar(&authToken, "token", "", "token value (read from stdin when omitted)")
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authCheckCmd)
	authCmd.AddCommand(authClearCmd)
	rootCmd.AddCommand(authCmd)
}
