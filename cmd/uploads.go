package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sales-insights/internal/store"
)

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Inspect upload history",
}

// -- uploads list --

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent uploads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		uploads, err := st.ListUploads(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "uploads list")
		}

		if len(uploads) == 0 {
			fmt.Fprintln(os.Stderr, "No uploads found.")
			return nil
		}

		formatUploadsList(cmd.OutOrStdout(), uploads)
		return nil
	},
}

// -- uploads show --

var uploadsShowCmd = &cobra.Command{
	Use:   "show <upload-id>",
	Short: "Show an upload and its insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return eris.Wrapf(err, "uploads show: invalid id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		u, err := st.GetUpload(ctx, id)
		if err != nil {
			return eris.Wrap(err, "uploads show")
		}

		formatUpload(cmd.OutOrStdout(), u)
		return nil
	},
}

func formatUploadsList(w io.Writer, uploads []store.Upload) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tROWS\tREVENUE\tCOST\tCREATED")
	for _, u := range uploads {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n",
			u.ID.String()[:8],
			u.Filename,
			u.Rows,
			u.TotalRevenue,
			u.Imputation,
			u.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func formatUpload(w io.Writer, u *store.Upload) {
	fmt.Fprintf(w, "ID:       %s\n", u.ID)
	fmt.Fprintf(w, "File:     %s\n", u.Filename)
	fmt.Fprintf(w, "Rows:     %d\n", u.Rows)
	fmt.Fprintf(w, "Revenue:  %.2f\n", u.TotalRevenue)
	fmt.Fprintf(w, "Created:  %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Columns:  %s\n", strings.Join(u.Columns, ", "))
	if len(u.Insights) > 0 {
		fmt.Fprintln(w, "\nInsights:")
		for _, ins := range u.Insights {
			fmt.Fprintf(w, "  %s\n", ins)
		}
	}
}

func init() {
	uploadsListCmd.Flags().Int("limit", store.DefaultListLimit, "maximum number of uploads to show")

	uploadsCmd.AddCommand(uploadsListCmd, uploadsShowCmd)
	rootCmd.AddCommand(uploadsCmd)
}
