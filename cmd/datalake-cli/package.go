package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var packageCmd = &cobra.Command{
	Use:     "package",
	Aliases: []string{"pkg"},
	Short:   "Manage packages",
}

var (
	packageDescription string
	packageMetadata    string
	packageName        string
)

var packageCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a package",
	Long: `Create a package.

Examples:
  datalake-cli package create "ocean temps" --description "buoy readings"
  datalake-cli package create temps --metadata '{"license":"cc-by"}'`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		md, err := parseMetadata(packageMetadata)
		if err != nil {
			return err
		}
		return printResponse(s.client.CreatePackage(cmd.Context(), client.CreatePackageParams{
			Name:        args[0],
			Description: packageDescription,
			Metadata:    md,
		}))
	}),
}

var packageUpdateCmd = &cobra.Command{
	Use:   "update <package-id>",
	Short: "Change the name or description of a package",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		p := client.UpdatePackageParams{PackageID: args[0]}
		if cmd.Flags().Changed("name") {
			p.Name = &packageName
		}
		if cmd.Flags().Changed("description") {
			p.Description = &packageDescription
		}
		return printResponse(s.client.UpdatePackage(cmd.Context(), p))
	}),
}

var packageDeleteCmd = &cobra.Command{
	Use:     "delete <package-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a package",
	Args:    cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DeletePackage(cmd.Context(), client.PackageParams{PackageID: args[0]}))
	}),
}

var packageDescribeCmd = &cobra.Command{
	Use:   "describe <package-id>",
	Short: "Show a package",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DescribePackage(cmd.Context(), client.PackageParams{PackageID: args[0]}))
	}),
}

var packageDatasetsCmd = &cobra.Command{
	Use:   "datasets <package-id>",
	Short: "List the datasets of a package",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DescribePackageDatasets(cmd.Context(), client.PackageParams{PackageID: args[0]}))
	}),
}

func init() {
	packageCreateCmd.Flags().StringVarP(&packageDescription, "description", "d", "", "package description")
	packageCreateCmd.Flags().StringVarP(&packageMetadata, "metadata", "m", "", "metadata as a JSON object")

	packageUpdateCmd.Flags().StringVar(&packageName, "name", "", "new name")
	packageUpdateCmd.Flags().StringVarP(&packageDescription, "description", "d", "", "new description")

	packageCmd.AddCommand(packageCreateCmd)
	packageCmd.AddCommand(packageUpdateCmd)
	packageCmd.AddCommand(packageDeleteCmd)
	packageCmd.AddCommand(packageDescribeCmd)
	packageCmd.AddCommand(packageDatasetsCmd)
}

// parseMetadata decodes a JSON object flag. An empty string is no metadata.
func parseMetadata(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	return md, nil
}
