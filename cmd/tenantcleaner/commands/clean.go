package commands

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/catherinevee/tenantcleaner/internal/cleanup"
	"github.com/catherinevee/tenantcleaner/internal/openstack"
	"github.com/catherinevee/tenantcleaner/internal/report"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

var (
	cleanDryRun bool
	cleanOutput string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run one cleanup pass over the tenant",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false,
		"Evaluate and report but delete nothing")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "table",
		"Report format (table, json)")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanOutput != "table" && cleanOutput != "json" {
		return fmt.Errorf("unknown output format %q", cleanOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	store, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	tracker := tracking.New(store)
	defer tracker.Close()

	ctx := cmd.Context()
	client, err := openstack.NewClient(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	options := cleanup.Options{DryRun: cleanDryRun}
	var bar *progressbar.ProgressBar
	if cleanOutput == "table" {
		options.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("evaluating items"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}
	}

	engine := cleanup.New(client.Managers(), tracker)
	result, err := engine.Run(ctx, plan, options)
	if err != nil {
		return err
	}

	if cleanOutput == "json" {
		return report.WriteJSON(os.Stdout, result)
	}
	return report.WriteTable(os.Stdout, result)
}
