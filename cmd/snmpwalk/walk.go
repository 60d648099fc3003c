// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

var (
	walkBulk     bool
	walkBatch    int
	walkRate     float64
	walkContinue bool
	walkName     string
)

func init() {
	for _, c := range []*cobra.Command{walkCmd, tableCmd} {
		c.Flags().BoolVar(&walkBulk, "bulk", false, "use GETBULK instead of GETNEXT")
		c.Flags().IntVar(&walkBatch, "batch", 0, "columns per request, 0 for all")
		c.Flags().Float64Var(&walkRate, "rate", 0, "max requests per second, 0 for no limit")
		c.Flags().BoolVar(&walkContinue, "continue", false, "keep walking the other columns when one fails")
		c.Flags().StringVar(&walkName, "name", "", "walk name for logs and metrics")
	}
}

var walkCmd = &cobra.Command{
	Use:   "walk ROOT...",
	Short: "Walk one or more subtrees together",
	Long: `Walk one or more subtrees. All roots are walked in the same requests,
one varbind per root, so walking N columns of a table costs about as many
requests as walking one. When the agent answers tooBig the number of
roots per request is halved.

Examples:
  snmpwalk walk -H 10.0.0.1 -c public .1.3.6.1.2.1.1
  snmpwalk walk -H 10.0.0.1 -c public --bulk .1.3.6.1.2.1.2.2.1.2 .1.3.6.1.2.1.2.2.1.10`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runWalk(cmd, args)
		if res != nil {
			printWalk(cmd.OutOrStdout(), res)
		}
		return err
	},
}

var tableCmd = &cobra.Command{
	Use:   "table COLUMN...",
	Short: "Walk table columns and print them as rows",
	Long: `Walk table columns and print one row per instance index.

Example:
  snmpwalk table -H 10.0.0.1 -c public .1.3.6.1.2.1.2.2.1.2 .1.3.6.1.2.1.2.2.1.10 .1.3.6.1.2.1.2.2.1.16`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runWalk(cmd, args)
		if res != nil {
			printTable(cmd.OutOrStdout(), snmp.BuildTable(res))
		}
		return err
	},
}

// runWalk walks the roots in args. On failure it still returns what was
// collected.
func runWalk(cmd *cobra.Command, args []string) (*snmp.WalkResult, error) {
	roots, err := parseOIDs(args)
	if err != nil {
		return nil, err
	}
	a, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	defer a.close()
	ep, err := a.endpoint(cmd)
	if err != nil {
		return nil, err
	}

	opts := append(a.cfg.Walk.Options(), snmp.WithLogger(a.log), snmp.WithMetrics(a.metrics))
	flags := cmd.Flags()
	if flags.Changed("bulk") && walkBulk {
		opts = append(opts, snmp.WithGetBulk(ep.MaxRepetitions))
	}
	if flags.Changed("batch") {
		opts = append(opts, snmp.WithBatchSize(walkBatch))
	}
	if flags.Changed("rate") {
		opts = append(opts, snmp.WithRateLimit(walkRate, 1))
	}
	if walkContinue {
		opts = append(opts, snmp.WithContinueOnFailure())
	}
	if walkName != "" {
		opts = append(opts, snmp.WithName(walkName))
	}

	w, err := snmp.NewAggregateWalker(a.strategy, ep, roots, opts...)
	if err != nil {
		return nil, err
	}
	res, err := w.Walk(cmd.Context())
	var we *snmp.WalkError
	if errors.As(err, &we) {
		return we.Partial, err
	}
	return res, err
}

func printWalk(w io.Writer, res *snmp.WalkResult) {
	for _, col := range res.Columns {
		for _, e := range col.Entries {
			printVarBind(w, e.OID, e.Value)
		}
		switch {
		case col.State == snmp.Failed:
			errColor.Fprintf(w, "# %s: %v\n", col.Root, col.Err)
		case col.Truncated:
			warnColor.Fprintf(w, "# %s: walk stopped early\n", col.Root)
		case col.State == snmp.Walking:
			warnColor.Fprintf(w, "# %s: not finished\n", col.Root)
		}
	}
	okColor.Fprintf(w, "# %d objects, %d rounds, %d requests\n", res.Rows(), res.Rounds, res.Requests)
}

func printTable(w io.Writer, t *snmp.Table) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "INDEX")
	for _, c := range t.Columns {
		header = append(header, c.String())
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range t.Rows {
		cells := make([]string, 0, len(r.Values)+1)
		cells = append(cells, r.Index.String())
		for _, v := range r.Values {
			cells = append(cells, cell(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()

	// colour only after layout, escape codes would count as cell width
	for i, line := range strings.SplitAfter(buf.String(), "\n") {
		if i == 0 || i > len(t.Rows) {
			fmt.Fprint(w, line)
			continue
		}
		idx := t.Rows[i-1].Index.String()
		fmt.Fprint(w, indexColor.Sprint(idx)+line[len(idx):])
	}
	okColor.Fprintf(w, "# %d rows\n", len(t.Rows))
}
