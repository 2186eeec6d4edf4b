package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	Long: `List records from the local database.

Filters combine: a record must match every one given.`,
	Example: `  regs list
  regs list -c Clothes -c Curtains --delivery undelivered
  regs list --sync unsynced --sort title_asc --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listCategories []string
	listSync       string
	listDelivery   string
	listSort       string
)

func init() {
	listCmd.Flags().StringSliceVarP(&listCategories, "category", "c", nil, "Only these categories (repeatable)")
	listCmd.Flags().StringVar(&listSync, "sync", "all", "Sync status: all, synced, unsynced")
	listCmd.Flags().StringVar(&listDelivery, "delivery", "all", "Delivery status: all, delivered, undelivered")
	listCmd.Flags().StringVar(&listSort, "sort", "newest", "Order: newest, oldest, title_asc, title_desc")
}

func runList(cmd *cobra.Command, args []string) error {
	opts, err := listFilterOptions()
	if err != nil {
		return err
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	records, err := sess.client.List(commandContext(cmd), opts)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	return outputRecordList(cmd, records)
}

// listFilterOptions parses the list flags. The locale is left unset so the
// client applies the configured one.
func listFilterOptions() (regs.FilterOptions, error) {
	var opts regs.FilterOptions
	for _, name := range listCategories {
		c, err := regs.ParseCategory(name)
		if err != nil {
			return opts, err
		}
		opts.Categories = append(opts.Categories, c)
	}

	var err error
	if opts.SyncStatus, err = regs.ParseSyncStatus(listSync); err != nil {
		return opts, err
	}
	if opts.DeliveryStatus, err = regs.ParseDeliveryStatus(listDelivery); err != nil {
		return opts, err
	}
	if opts.SortBy, err = regs.ParseSortBy(listSort); err != nil {
		return opts, err
	}
	return opts, nil
}
