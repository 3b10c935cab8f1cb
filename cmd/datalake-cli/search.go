package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var searchCmd = &cobra.Command{
	Use:     "search <term>...",
	Short:   "Search packages",
	Example: `  datalake-cli search ocean temperature`,
	Args:    cobra.MinimumNArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.Search(cmd.Context(), client.SearchParams{Terms: strings.Join(args, " ")}))
	}),
}
