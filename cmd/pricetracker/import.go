package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ahmethakanbesel/price-tracker/internal/config"
	"github.com/ahmethakanbesel/price-tracker/internal/item"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Bulk import price items from a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to a JSON array of items",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("read items: %w", err)
			}
			var reqs []item.CreateItemRequest
			if err := json.Unmarshal(data, &reqs); err != nil {
				return fmt.Errorf("parse items: %w", err)
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			summary := a.itemSvc.BulkInsert(c.Context, reqs)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("write results: %w", err)
			}

			if summary.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d items failed", summary.Failed, len(reqs)), 2)
			}
			return nil
		},
	}
}
