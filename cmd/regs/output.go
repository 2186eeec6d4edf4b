package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints an error to w, ensuring no API keys are leaked.
func outputError(w io.Writer, err error) {
	printError(w, "Error: %s", scrubSensitiveData(err.Error()))
}

// scrubSensitiveData redacts the configured API key from a message.
func scrubSensitiveData(msg string) string {
	for _, key := range []string{cfgAPIKey, os.Getenv("REGS_API_KEY")} {
		if key != "" && strings.Contains(msg, key) {
			msg = strings.ReplaceAll(msg, key, "[REDACTED]")
		}
	}
	return msg
}

// outputRecord prints a single record in the configured format.
func outputRecord(cmd *cobra.Command, verb string, rec *regs.Record) error {
	if outputJSON {
		return outputAsJSON(cmd, rec)
	}

	out := cmd.OutOrStdout()
	if verb != "" {
		printSuccess(out, "%s %s", verb, rec.ID)
	}
	printField(out, "Title", rec.Title)
	printField(out, "Category", string(rec.Category))
	printField(out, "Created", rec.Timestamp)
	if rec.DeliveryDeadline != nil {
		printField(out, "Deadline", *rec.DeliveryDeadline)
	}
	printField(out, "Delivered", yesNo(rec.Delivered))
	printField(out, "Sync", syncLabel(*rec))
	if rec.Description != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderMarkdown(rec.Description))
	}

	rows := measurementRows(*rec)
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"GROUP", "FIELD", "VALUE"}, rows))
	}
	return nil
}

// outputRecordList prints records as a table.
func outputRecordList(cmd *cobra.Command, records []regs.Record) error {
	if outputJSON {
		return outputAsJSON(cmd, records)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			truncate(r.Title, 32),
			string(r.Category),
			r.Timestamp,
			yesNo(r.Delivered),
			syncLabel(r),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "TITLE", "CATEGORY", "CREATED", "DELIVERED", "SYNC"}, rows))
	printMuted(out, "%d record(s)", len(records))
	return nil
}

// measurementRows lists the filled measurements of rec in schema order.
func measurementRows(rec regs.Record) [][]string {
	unit := rec.Category.Unit()
	var rows [][]string
	for _, g := range regs.Schema(rec.Category) {
		for _, f := range g.Fields {
			v := rec.Measurements[g.Name][f]
			if v == nil {
				continue
			}
			rows = append(rows, []string{g.Name, f, strconv.FormatFloat(*v, 'f', -1, 64) + " " + unit})
		}
	}
	return rows
}

func syncLabel(r regs.Record) string {
	if r.Pending() {
		return "pending"
	}
	return "synced"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
