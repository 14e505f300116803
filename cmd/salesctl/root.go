package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"salescore/internal/app"
	"salescore/internal/core"
)

// cli carries the flags and the opened application between cobra hooks.
type cli struct {
	configPath string
	jsonOut    bool
	logOut     io.Writer
	app        *app.App
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{logOut: errOut}
	root := &cobra.Command{
		Use:   "salesctl",
		Short: "Manage the sales snapshot",
		Long: `salesctl runs sales operations against the configured snapshot store.

Storage, logging and event publishing come from the --config YAML file and
SALES_* environment variables.

Examples:
  salesctl product add Widget --price 10 --qty 5
  salesctl partner add Acme buyer@acme.test
  salesctl order create 1 --line 1:2
  salesctl order confirm 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return c.open(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		c.productCmd(),
		c.partnerCmd(),
		c.orderCmd(),
		c.invoiceCmd(),
		c.configCmd(),
	)
	c.closeAfterRun(root)
	return root
}

// closeAfterRun wraps every runnable command so the application is closed,
// and its snapshot written, whether or not the command fails.
func (c *cli) closeAfterRun(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		c.closeAfterRun(sub)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := c.close(cmd); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	a, err := app.Open(cmd.Context(), cfg, app.WithLogOutput(c.logOut))
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close(cmd *cobra.Command) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close(cmd.Context())
	c.app = nil
	return err
}

func (c *cli) svc() *core.Service { return c.app.Service }

// print writes v as JSON when --json is set, otherwise as a table built by
// rows.
func (c *cli) print(cmd *cobra.Command, v any, header []string, rows func() [][]string) error {
	out := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseDecimal(flag, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --%s %q", flag, raw)
	}
	return d, nil
}

// parseLines reads PRODUCT_ID:QTY[@UNIT_PRICE] flags.
func parseLines(raw []string) ([]core.LineInput, error) {
	lines := make([]core.LineInput, 0, len(raw))
	for _, arg := range raw {
		item, priceRaw, hasPrice := strings.Cut(arg, "@")
		productRaw, qtyRaw, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid line %q, want PRODUCT_ID:QTY[@PRICE]", arg)
		}
		productID, err := parseID(productRaw)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.Atoi(qtyRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in line %q", arg)
		}
		line := core.LineInput{ProductID: productID, Qty: qty}
		if hasPrice {
			price, err := parseDecimal("line", priceRaw)
			if err != nil {
				return nil, err
			}
			line.UnitPrice = &price
		}
		lines = append(lines, line)
	}
	return lines, nil
}
