package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/tenantcleaner/internal/models"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

var trackerTypeFilter string

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Inspect the first-observed tracker",
}

var trackerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked item identifiers",
	RunE:  runTrackerList,
}

func init() {
	trackerListCmd.Flags().StringVarP(&trackerTypeFilter, "type", "t", "",
		"Only list one item type (image, keypair, instance)")
	trackerCmd.AddCommand(trackerListCmd)
}

func runTrackerList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	tracker := tracking.New(store)
	defer tracker.Close()

	var filter *models.ItemType
	if trackerTypeFilter != "" {
		itemType := models.ItemType(trackerTypeFilter)
		switch itemType {
		case models.ItemTypeImage, models.ItemTypeKeypair, models.ItemTypeInstance:
			filter = &itemType
		default:
			return fmt.Errorf("unknown item type %q", trackerTypeFilter)
		}
	}

	ids, err := tracker.RegisteredIdentifiers(filter)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Identifier"})
	for _, id := range ids {
		table.Append([]string{id.String()})
	}
	table.Render()
	fmt.Printf("%d tracked item(s)\n", len(ids))
	return nil
}
