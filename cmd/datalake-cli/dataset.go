package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var datasetCmd = &cobra.Command{
	Use:     "dataset",
	Aliases: []string{"ds"},
	Short:   "Manage the datasets of a package",
}

var (
	uploadContentType string
	orphansPackage    string
	cleanupYes        bool
)

var datasetUploadCmd = &cobra.Command{
	Use:   "upload <package-id> <file>...",
	Short: "Upload files as datasets",
	Long: `Upload files as datasets of a package.

Each file is registered, streamed to its one-time upload URL and confirmed, in
that order. If the upload or confirm step fails, the registered dataset is left
in place and recorded in the upload journal; 'dataset orphans' lists such
datasets and 'dataset cleanup' removes them.

Examples:
  datalake-cli dataset upload 3f2a readings.csv
  datalake-cli dataset upload 3f2a --content-type text/plain a.log b.log`,
	Args: cobra.MinimumNArgs(2),
	RunE: withSession(true, func(cmd *cobra.Command, args []string, s *session) error {
		packageID := args[0]
		results := make([]client.UploadOutcome, 0, len(args)-1)
		for _, path := range args[1:] {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			out := client.UploadOutcome{LocalPath: path, PackageID: packageID}
			if info, err := os.Stat(path); err == nil {
				out.Size = info.Size()
			}
			res, err := s.client.UploadFile(cmd.Context(), packageID, path, uploadContentType)
			if err != nil {
				out.Err = err
			} else {
				out.DatasetID = res.DatasetID
				out.Record = res.Record
			}
			results = append(results, out)
		}

		if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
			return err
		}
		if n := countFailed(results); n > 0 {
			return fmt.Errorf("%d of %d uploads failed", n, len(results))
		}
		return nil
	}),
}

var datasetDescribeCmd = &cobra.Command{
	Use:   "describe <package-id> <dataset-id>",
	Short: "Show a dataset",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DescribePackageDataset(cmd.Context(), client.DatasetParams{PackageID: args[0], DatasetID: args[1]}))
	}),
}

var datasetDeleteCmd = &cobra.Command{
	Use:     "delete <package-id> <dataset-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a dataset",
	Args:    cobra.ExactArgs(2),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DeletePackageDataset(cmd.Context(), client.DatasetParams{PackageID: args[0], DatasetID: args[1]}))
	}),
}

var datasetOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List datasets left behind by failed uploads",
	Args:  cobra.NoArgs,
	RunE: withSession(true, func(cmd *cobra.Command, _ []string, s *session) error {
		entries, err := s.client.ListOrphans(cmd.Context(), orphansPackage)
		if err != nil {
			return err
		}
		return getFormatter().FormatOrphans(os.Stdout, entries)
	}),
}

var datasetCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete datasets left behind by failed uploads",
	Long: `Delete every dataset that a failed upload left registered, then mark it
cleaned up in the upload journal. A dataset the server no longer has is marked
cleaned up as well.

Nothing is deleted without confirmation unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: withSession(true, func(cmd *cobra.Command, _ []string, s *session) error {
		entries, err := s.client.ListOrphans(cmd.Context(), orphansPackage)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return getFormatter().FormatCleanup(os.Stdout, nil)
		}

		if !cleanupYes && !confirm(fmt.Sprintf("Delete %d orphaned dataset(s)", len(entries))) {
			fmt.Println("Cancelled.")
			return nil
		}

		results, err := s.client.CleanupOrphans(cmd.Context(), orphansPackage)
		if err != nil {
			return err
		}
		if err := getFormatter().FormatCleanup(os.Stdout, results); err != nil {
			return err
		}
		if client.HasCleanupErrors(results) {
			return errors.New("some datasets could not be cleaned up")
		}
		return nil
	}),
}

func init() {
	datasetUploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override the detected content type")

	for _, c := range []*cobra.Command{datasetOrphansCmd, datasetCleanupCmd} {
		c.Flags().StringVar(&orphansPackage, "package", "", "only datasets of this package")
	}
	datasetCleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "do not ask for confirmation")

	datasetCmd.AddCommand(datasetUploadCmd)
	datasetCmd.AddCommand(datasetDescribeCmd)
	datasetCmd.AddCommand(datasetDeleteCmd)
	datasetCmd.AddCommand(datasetOrphansCmd)
	datasetCmd.AddCommand(datasetCleanupCmd)
}

func countFailed(results []client.UploadOutcome) int {
	n := 0
	for i := range results {
		if results[i].Err != nil {
			n++
		}
	}
	return n
}
