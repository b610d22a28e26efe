package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/config"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/handlers"
)

func newStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "Print the stock offerings that are open for subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configName)
			if err != nil {
				return err
			}
			info, err := handlers.NewStockScraper(cfg.Stock.URL, cfg.Stock.MaxRetries).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info)
			return nil
		},
	}
}
