package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a measurement record",
	Long: `Create a record with an empty measurement schema for its category.

The record is saved locally first, then pushed to the remote service when
an owner is signed in. Fill in measurements afterwards with 'regs measure'.`,
	Example: `  regs add --title "Wedding suit" -c Clothes --deadline "June 1"
  regs add --title "Living room" -c Curtains --owner alice --json`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a record with its measurements",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit the title, description or deadline of a record",
	Example: `  regs edit 01HV3K --title "Wedding suit (navy)"
  regs edit 01HV3K --deadline ""`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var deliverCmd = &cobra.Command{
	Use:   "deliver <id>",
	Short: "Mark a record delivered",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeliver,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Long: `Delete a record locally and from the remote service.

If the remote cannot be reached the delete is queued and retried by the
next sync, so the record is not pulled back in.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every record",
	Args:  cobra.NoArgs,
	RunE:  runDeleteAll,
}

var (
	addTitle       string
	addCategory    string
	addDescription string
	addDeadline    string
	addThumbnail   string

	editTitle       string
	editDescription string
	editDeadline    string

	deliverUndo      bool
	deleteAllConfirm bool
)

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "Record title (required)")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Category: Clothes, Curtains, Others (required)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Free-form notes, markdown allowed")
	addCmd.Flags().StringVar(&addDeadline, "deadline", "", "Delivery deadline")
	addCmd.Flags().StringVar(&addThumbnail, "thumbnail", "", "Thumbnail image reference")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("category")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editDescription, "description", "", "New description")
	editCmd.Flags().StringVar(&editDeadline, "deadline", "", "New delivery deadline; empty clears it")

	deliverCmd.Flags().BoolVar(&deliverUndo, "undo", false, "Mark the record not delivered")

	deleteAllCmd.Flags().BoolVar(&deleteAllConfirm, "confirm", false, "Confirm deletion (required)")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, editCmd, measureCmd, deliverCmd, deleteCmd, deleteAllCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	category, err := regs.ParseCategory(addCategory)
	if err != nil {
		return err
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := sess.client.Create(commandContext(cmd), sess.client.Owner(), regs.CreateParams{
		Title:            addTitle,
		Description:      addDescription,
		Category:         category,
		DeliveryDeadline: addDeadline,
		Thumbnail:        addThumbnail,
	})
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return outputRecord(cmd, "Created", rec)
}

func runShow(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := resolveRecord(cmd, sess.client, args[0])
	if err != nil {
		return err
	}
	return outputRecord(cmd, "", rec)
}

func runEdit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("title") && !flags.Changed("description") && !flags.Changed("deadline") {
		return errors.New("nothing to edit: pass --title, --description or --deadline")
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	current, err := resolveRecord(cmd, sess.client, args[0])
	if err != nil {
		return err
	}

	params := regs.EditParams{
		Title:       current.Title,
		Description: current.Description,
	}
	if current.DeliveryDeadline != nil {
		params.DeliveryDeadline = *current.DeliveryDeadline
	}
	if flags.Changed("title") {
		params.Title = editTitle
	}
	if flags.Changed("description") {
		params.Description = editDescription
	}
	if flags.Changed("deadline") {
		params.DeliveryDeadline = editDeadline
	}

	rec, err := sess.client.Edit(commandContext(cmd), sess.client.Owner(), current.ID, params)
	if err != nil {
		return fmt.Errorf("edit record: %w", err)
	}
	return outputRecord(cmd, "Updated", rec)
}

func runDeliver(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	current, err := resolveRecord(cmd, sess.client, args[0])
	if err != nil {
		return err
	}

	rec, err := sess.client.ToggleDelivered(commandContext(cmd), sess.client.Owner(), current.ID, !deliverUndo)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	verb := "Delivered"
	if deliverUndo {
		verb = "Undelivered"
	}
	return outputRecord(cmd, verb, rec)
}

func runDelete(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	current, err := resolveRecord(cmd, sess.client, args[0])
	if err != nil {
		return err
	}
	if err := sess.client.Delete(commandContext(cmd), sess.client.Owner(), current.ID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, map[string]any{"deleted": current.ID})
	}
	printSuccess(cmd.OutOrStdout(), "Deleted %s (%s)", current.ID, current.Title)
	return nil
}

func runDeleteAll(cmd *cobra.Command, args []string) error {
	if !deleteAllConfirm {
		return errors.New("refusing to delete every record without --confirm")
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	n, err := sess.client.DeleteAll(commandContext(cmd), sess.client.Owner())
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, map[string]any{"deleted": n})
	}
	printSuccess(cmd.OutOrStdout(), "Deleted %d record(s)", n)
	return nil
}

// resolveRecord finds a record by full id or by a unique id prefix.
func resolveRecord(cmd *cobra.Command, client *regs.Client, ref string) (*regs.Record, error) {
	ctx := commandContext(cmd)
	rec, err := client.Get(ctx, ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, regs.ErrNotFound) {
		return nil, err
	}

	all, err := client.List(ctx, regs.DefaultFilterOptions())
	if err != nil {
		return nil, err
	}
	var matches []regs.Record
	for _, r := range all {
		if strings.HasPrefix(strings.ToUpper(r.ID), strings.ToUpper(ref)) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", regs.ErrNotFound, ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q is ambiguous: matches %d records", ref, len(matches))
	}
}
