package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"salescore/internal/app"
	"salescore/internal/core"
	"salescore/pkg/domain"
)

type productView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Qty   int    `json:"qty"`
}

type partnerView struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SaleOrderIDs []int  `json:"sale_order_ids"`
	InvoiceIDs   []int  `json:"invoice_ids"`
}

type lineView struct {
	ProductID int    `json:"product_id"`
	Product   string `json:"product"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type documentView struct {
	ID         int        `json:"id"`
	CustomerID int        `json:"customer_id"`
	State      string     `json:"state"`
	InvoiceID  *int       `json:"invoice_id,omitempty"`
	Total      string     `json:"total"`
	Lines      []lineView `json:"lines"`
}

type summaryView struct {
	partnerView
	Orders         int    `json:"orders"`
	TotalInvoiced  string `json:"total_invoiced"`
	PostedInvoiced string `json:"posted_invoiced"`
}

func viewProduct(p *domain.Product) productView {
	return productView{ID: p.ID(), Name: p.Name(), Price: p.Price().String(), Qty: p.Qty()}
}

func viewPartner(p *domain.Partner) partnerView {
	return partnerView{ID: p.ID(), Name: p.Name(), Email: p.Email(), SaleOrderIDs: p.SaleOrderIDs(), InvoiceIDs: p.InvoiceIDs()}
}

func viewLines(lines []domain.Line) []lineView {
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineView{
			ProductID: l.Product().ID(),
			Product:   l.Product().Name(),
			Qty:       l.Qty(),
			UnitPrice: l.UnitPrice().String(),
			Total:     l.Total().String(),
		})
	}
	return out
}

func viewOrder(o *domain.SaleOrder) documentView {
	v := documentView{
		ID:         o.ID(),
		CustomerID: o.Customer().ID(),
		State:      string(o.State()),
		Total:      o.TotalAmount().String(),
		Lines:      viewLines(o.Lines()),
	}
	if id, ok := o.InvoiceID(); ok {
		v.InvoiceID = &id
	}
	return v
}

func viewInvoice(inv *domain.Invoice) documentView {
	return documentView{
		ID:         inv.ID(),
		CustomerID: inv.Customer().ID(),
		State:      string(inv.State()),
		Total:      inv.TotalAmount().String(),
		Lines:      viewLines(inv.Lines()),
	}
}

func (c *cli) printProducts(cmd *cobra.Command, products ...*domain.Product) error {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewProduct(p))
	}
	return c.print(cmd, views, []string{"ID", "NAME", "PRICE", "QTY"}, func() [][]string {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{strconv.Itoa(v.ID), v.Name, v.Price, strconv.Itoa(v.Qty)})
		}
		return rows
	})
}

func (c *cli) printPartners(cmd *cobra.Command, partners ...*domain.Partner) error {
	views := make([]partnerView, 0, len(partners))
	for _, p := range partners {
		views = append(views, viewPartner(p))
	}
	return c.print(cmd, views, []string{"ID", "NAME", "EMAIL", "ORDERS", "INVOICES"}, func() [][]string {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{strconv.Itoa(v.ID), v.Name, v.Email, strconv.Itoa(len(v.SaleOrderIDs)), strconv.Itoa(len(v.InvoiceIDs))})
		}
		return rows
	})
}

func (c *cli) printDocuments(cmd *cobra.Command, views []documentView) error {
	return c.print(cmd, views, []string{"ID", "CUSTOMER", "STATE", "LINES", "TOTAL"}, func() [][]string {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{strconv.Itoa(v.ID), strconv.Itoa(v.CustomerID), v.State, strconv.Itoa(len(v.Lines)), v.Total})
		}
		return rows
	})
}

func (c *cli) productCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "product", Short: "Manage products"}

	var price string
	var qty int
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDecimal("price", price)
			if err != nil {
				return err
			}
			p, err := c.svc().CreateProduct(cmd.Context(), core.ProductInput{Name: args[0], Price: d, Qty: qty})
			if err != nil {
				return err
			}
			return c.printProducts(cmd, p)
		},
	}
	add.Flags().StringVar(&price, "price", "0", "Unit price")
	add.Flags().IntVar(&qty, "qty", 0, "Quantity on hand")

	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printProducts(cmd, c.svc().Products()...)
		},
	}

	set := &cobra.Command{
		Use:   "set ID",
		Short: "Change product fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var upd core.ProductUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				name, _ := flags.GetString("name")
				upd.Name = &name
			}
			if flags.Changed("price") {
				raw, _ := flags.GetString("price")
				d, err := parseDecimal("price", raw)
				if err != nil {
					return err
				}
				upd.Price = &d
			}
			if flags.Changed("qty") {
				n, _ := flags.GetInt("qty")
				upd.Qty = &n
			}
			p, err := c.svc().UpdateProduct(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return c.printProducts(cmd, p)
		},
	}
	set.Flags().String("name", "", "New name")
	set.Flags().String("price", "", "New unit price")
	set.Flags().Int("qty", 0, "New quantity on hand")

	restock := &cobra.Command{
		Use:   "restock ID AMOUNT",
		Short: "Add stock to a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			p, err := c.svc().RestockProduct(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			return c.printProducts(cmd, p)
		},
	}

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete an unreferenced product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.svc().DeleteProduct(cmd.Context(), id)
		},
	}

	cmd.AddCommand(add, list, set, restock, remove)
	return cmd
}

func (c *cli) partnerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "partner", Short: "Manage partners"}

	add := &cobra.Command{
		Use:   "add NAME EMAIL",
		Short: "Create a partner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.svc().CreatePartner(cmd.Context(), core.PartnerInput{Name: args[0], Email: args[1]})
			if err != nil {
				return err
			}
			return c.printPartners(cmd, p)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List partners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printPartners(cmd, c.svc().Partners()...)
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a partner with order and invoice totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := c.svc().PartnerSummary(id)
			if err != nil {
				return err
			}
			v := summaryView{
				partnerView:    viewPartner(s.Partner),
				Orders:         s.Orders,
				TotalInvoiced:  s.TotalInvoiced.String(),
				PostedInvoiced: s.PostedInvoiced.String(),
			}
			return c.print(cmd, v, []string{"ID", "NAME", "EMAIL", "ORDERS", "INVOICED", "POSTED"}, func() [][]string {
				return [][]string{{strconv.Itoa(v.ID), v.Name, v.Email, strconv.Itoa(v.Orders), v.TotalInvoiced, v.PostedInvoiced}}
			})
		},
	}

	var name, email string
	set := &cobra.Command{
		Use:   "set ID",
		Short: "Change partner fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var upd core.PartnerUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			p, err := c.svc().UpdatePartner(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return c.printPartners(cmd, p)
		},
	}
	set.Flags().StringVar(&name, "name", "", "New name")
	set.Flags().StringVar(&email, "email", "", "New email")

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a partner without orders or invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.svc().DeletePartner(cmd.Context(), id)
		},
	}

	cmd.AddCommand(add, list, show, set, remove)
	return cmd
}

func (c *cli) orderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "order", Short: "Manage sale orders"}

	var lineSpecs []string
	create := &cobra.Command{
		Use:   "create CUSTOMER_ID",
		Short: "Create a draft order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			lines, err := parseLines(lineSpecs)
			if err != nil {
				return err
			}
			o, err := c.svc().CreateSaleOrder(cmd.Context(), customerID, lines)
			if err != nil {
				return err
			}
			return c.printDocuments(cmd, []documentView{viewOrder(o)})
		},
	}
	create.Flags().StringArrayVarP(&lineSpecs, "line", "l", nil, "Order line PRODUCT_ID:QTY[@PRICE], repeatable")

	confirm := &cobra.Command{
		Use:   "confirm ID",
		Short: "Confirm a draft order, consuming stock and creating an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := c.svc().ConfirmSaleOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.printDocuments(cmd, []documentView{viewInvoice(inv)})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := c.svc().CancelSaleOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.printDocuments(cmd, []documentView{viewOrder(o)})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders := c.svc().SaleOrders()
			views := make([]documentView, 0, len(orders))
			for _, o := range orders {
				views = append(views, viewOrder(o))
			}
			return c.printDocuments(cmd, views)
		},
	}

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.svc().DeleteSaleOrder(cmd.Context(), id)
		},
	}

	cmd.AddCommand(create, confirm, cancel, list, remove)
	return cmd
}

func (c *cli) invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "invoice", Short: "Manage invoices"}

	var lineSpecs []string
	create := &cobra.Command{
		Use:   "create CUSTOMER_ID",
		Short: "Create a draft invoice outside the order workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			lines, err := parseLines(lineSpecs)
			if err != nil {
				return err
			}
			inv, err := c.svc().CreateInvoice(cmd.Context(), customerID, lines)
			if err != nil {
				return err
			}
			return c.printDocuments(cmd, []documentView{viewInvoice(inv)})
		},
	}
	create.Flags().StringArrayVarP(&lineSpecs, "line", "l", nil, "Invoice line PRODUCT_ID:QTY[@PRICE], repeatable")

	list := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices := c.svc().Invoices()
			views := make([]documentView, 0, len(invoices))
			for _, inv := range invoices {
				views = append(views, viewInvoice(inv))
			}
			return c.printDocuments(cmd, views)
		},
	}

	post := &cobra.Command{
		Use:   "post ID",
		Short: "Post a draft invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := c.svc().PostInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.printDocuments(cmd, []documentView{viewInvoice(inv)})
		},
	}

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete an invoice no order points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.svc().DeleteInvoice(cmd.Context(), id)
		},
	}

	cmd.AddCommand(create, list, post, remove)
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
