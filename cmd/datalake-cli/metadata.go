package main

import (
	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var metadataCmd = &cobra.Command{
	Use:     "metadata",
	Aliases: []string{"md"},
	Short:   "Manage package metadata",
}

var metadataCreateCmd = &cobra.Command{
	Use:   "create <package-id> <json-object>",
	Short: "Add metadata to a package",
	Long: `Add metadata to a package. Keys already present are overwritten.

Example:
  datalake-cli metadata create 3f2a '{"title":"Ocean temperatures"}'`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		md, err := parseMetadata(args[1])
		if err != nil {
			return err
		}
		return printResponse(s.client.CreateMetadata(cmd.Context(), client.CreateMetadataParams{PackageID: args[0], Metadata: md}))
	}),
}

var metadataDescribeCmd = &cobra.Command{
	Use:   "describe <package-id>",
	Short: "Show the metadata of a package",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DescribeMetadata(cmd.Context(), client.PackageParams{PackageID: args[0]}))
	}),
}

var metadataRequiredCmd = &cobra.Command{
	Use:   "required",
	Short: "List the metadata keys every package must have",
	Args:  cobra.NoArgs,
	RunE: withSession(false, func(cmd *cobra.Command, _ []string, s *session) error {
		return printResponse(s.client.DescribeRequiredMetadata(cmd.Context()))
	}),
}

func init() {
	metadataCmd.AddCommand(metadataCreateCmd)
	metadataCmd.AddCommand(metadataDescribeCmd)
	metadataCmd.AddCommand(metadataRequiredCmd)
}
