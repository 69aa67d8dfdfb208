package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sales-insights/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Reconcile and analyze a sales file from disk",
	Long:  "Runs a CSV or XLSX file through column reconciliation, cost imputation and insight generation, and prints the result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "yaml" {
			return eris.Errorf("analyze: unsupported output format %q", format)
		}
		doPublish, _ := cmd.Flags().GetBool("publish")
		noStore, _ := cmd.Flags().GetBool("no-store")

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "analyze: open file")
		}
		defer f.Close() //nolint:errcheck

		env, err := initEnv(ctx, "analyze", envOptions{store: !noStore, publish: doPublish})
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Pipeline.Run(ctx, pipeline.Upload{
			Filename: filepath.Base(args[0]),
			Data:     f,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		return writeResponse(cmd.OutOrStdout(), resp, format)
	},
}

// writeResponse renders resp as indented JSON or YAML.
func writeResponse(w io.Writer, resp *pipeline.Response, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return eris.Wrap(err, "analyze: encode yaml")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(resp), "analyze: encode json")
	default:
		return eris.Errorf("analyze: unsupported output format %q", format)
	}
}

func init() {
	analyzeCmd.Flags().String("format", "json", "output format: json or yaml")
	analyzeCmd.Flags().Bool("publish", false, "publish the extract to the configured targets")
	analyzeCmd.Flags().Bool("no-store", false, "do not record the upload in the history store")
	rootCmd.AddCommand(analyzeCmd)
}
