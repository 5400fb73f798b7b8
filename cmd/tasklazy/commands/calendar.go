package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keisuke70/tasklazy/internal/config"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
)

// NewCalendarAuthCmd creates the calendar-auth command
func NewCalendarAuthCmd() *cobra.Command {
	var (
		credentialsFile string
		tokenFile       string
		code            string
	)

	cmd := &cobra.Command{
		Use:   "calendar-auth",
		Short: "Authorize read access to Google Calendar",
		Long:  "Print the consent URL, exchange the returned code and store the token used for fixed events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg, err := config.Load(); err == nil {
				if credentialsFile == "" {
					credentialsFile = cfg.GoogleCredentialsFile
				}
				if tokenFile == "" {
					tokenFile = cfg.GoogleTokenFile
				}
			}
			if credentialsFile == "" || tokenFile == "" {
				return errors.New("--credentials and --token (or GOOGLE_CREDENTIALS_FILE and GOOGLE_TOKEN_FILE) are required")
			}

			oauthConfig, err := calendar.OAuthConfig(credentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if code == "" {
				fmt.Fprintf(out, "Open this URL in a browser and paste the authorization code:\n\n%s\n\nCode: ", calendar.AuthCodeURL(oauthConfig))
				code, err = readCode(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			if err := calendar.ExchangeAndSave(cmd.Context(), oauthConfig, code, tokenFile); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", tokenFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsFile, "credentials", "", "OAuth client secret JSON file")
	cmd.Flags().StringVar(&tokenFile, "token", "", "Where to store the token")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted when empty)")

	return cmd
}

func readCode(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", errors.New("authorization code is empty")
	}
	return code, nil
}
