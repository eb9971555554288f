package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/spf13/cobra"
)

var retryOpts struct {
	owner   string
	jobType string
	limit   int
}

var retryCmd = &cobra.Command{
	Use:   "retry <entry-id>",
	Short: "Grants a manual retry on a failed entry",
	Long: `Claims a manual retry for a failed lifecycle directly in the entry store.
The lifecycle is reset to pending and counted against the manual retry limit.
The server re-admits pending entries when it starts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}
		ownerID, err := uuid.Parse(retryOpts.owner)
		if err != nil {
			return fmt.Errorf("invalid owner ID: %w", err)
		}
		jobType, err := domain.ParseJobType(retryOpts.jobType)
		if err != nil {
			return err
		}

		entryStore, cleanup, err := openEntryStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		count, err := entryStore.ClaimManualRetry(cmd.Context(), entryID, ownerID, jobType, retryOpts.limit)
		if err != nil {
			return fmt.Errorf("claim %s retry: %w", jobType, err)
		}

		log.Info("manual retry granted", "entry_id", entryID, "job_type", jobType, "retry_count", count)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s retry %d/%d granted for entry %s\n",
			jobType, count, retryOpts.limit, entryID)
		return err
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	retryCmd.Flags().StringVar(&retryOpts.owner, "owner", "", "Owner ID of the entry")
	retryCmd.Flags().StringVar(&retryOpts.jobType, "type", string(domain.JobTypeAnalysis), "Lifecycle to retry (analysis or image)")
	retryCmd.Flags().IntVar(&retryOpts.limit, "limit", 3, "Manual retry limit")
	_ = retryCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(retryCmd)
}
