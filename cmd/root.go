package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sales-insights/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sales-insights",
	Short: "Sales file reconciliation and insight engine",
	Long:  "Maps arbitrary sales CSV/XLSX headers onto a standard schema, imputes missing unit costs, computes sales insights and publishes the cleaned extract.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
