package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var measureCmd = &cobra.Command{
	Use:   "measure <id> <field=value>...",
	Short: "Set or clear measurements on a record",
	Long: `Set measurements on a record. Each argument names a field, optionally
qualified by its group, and a value. An empty value or "-" clears the field.

Run 'regs measure <id> --fields' to list the fields of the record's category.`,
	Example: `  regs measure 01HV3K chestWidth=48.5 waistCircumference=82
  regs measure 01HV3K dimensions.width=2.5 dimensions.height=-`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMeasure,
}

var measureFields bool

func init() {
	measureCmd.Flags().BoolVar(&measureFields, "fields", false, "List the measurement fields for the record's category")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	if !measureFields && len(args) < 2 {
		return fmt.Errorf("no measurements given")
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

	if measureFields {
		return outputSchema(cmd, current.Category)
	}

	values, err := parseMeasurements(current.Category, args[1:])
	if err != nil {
		return err
	}

	rec, err := sess.client.UpdateMeasurements(commandContext(cmd), sess.client.Owner(), current.ID, values)
	if err != nil {
		return fmt.Errorf("update measurements: %w", err)
	}
	return outputRecord(cmd, "Measured", rec)
}

// parseMeasurements turns "group.field=value" or "field=value" arguments
// into a patch. A bare field name is looked up in the category schema.
func parseMeasurements(category regs.Category, args []string) (regs.Measurements, error) {
	patch := make(regs.Measurements)
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("measurement %q: expected field=value", arg)
		}

		group, field, qualified := strings.Cut(name, ".")
		if !qualified {
			field = name
			group = groupOf(category, field)
			if group == "" {
				return nil, fmt.Errorf("%w: %s for %s", regs.ErrUnknownMeasurement, field, category)
			}
		}

		var value *float64
		raw = strings.TrimSpace(raw)
		if raw != "" && raw != "-" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("measurement %s: %q is not a number", name, raw)
			}
			value = &v
		}

		if patch[group] == nil {
			patch[group] = make(map[string]*float64)
		}
		patch[group][field] = value
	}
	return patch, nil
}

func groupOf(category regs.Category, field string) string {
	for _, g := range regs.Schema(category) {
		for _, f := range g.Fields {
			if f == field {
				return g.Name
			}
		}
	}
	return ""
}

func outputSchema(cmd *cobra.Command, category regs.Category) error {
	schema := regs.Schema(category)
	if outputJSON {
		return outputAsJSON(cmd, schema)
	}
	rows := make([][]string, 0, len(schema))
	for _, g := range schema {
		rows = append(rows, []string{g.Name, strings.Join(g.Fields, ", ")})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"GROUP", "FIELDS"}, rows))
	printMuted(out, "values in %s", category.Unit())
	return nil
}
