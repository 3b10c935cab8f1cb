package main

import (
	"os"

	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the auth token for today",
	Long: `Print the auth token the client would send today (UTC). The token is valid
until the end of the UTC day and only for the profile's endpoint host.`,
	Args: cobra.NoArgs,
	RunE: withSession(false, func(_ *cobra.Command, _ []string, s *session) error {
		return getFormatter().FormatToken(os.Stdout, s.client.Token())
	}),
}
