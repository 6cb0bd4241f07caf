package cli

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/retry"
	"github.com/spf13/cobra"
)

func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	var q client.ProductQuery

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			return retry.Do(cmd.Context(), retry.DefaultPolicy(), func(ctx context.Context) error {
				page, err := c.ListProducts(ctx, q)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}

	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 12, "products per page")
	cmd.Flags().StringVar(&q.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&q.Search, "search", "", "match name or description")
	cmd.Flags().StringVar(&q.SortBy, "sort-by", "", "created_at, price or name")
	cmd.Flags().StringVar(&q.SortOrder, "sort-order", "", "asc or desc")

	return cmd
}

func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order <order-number>",
		Short: "Look up an order by number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			return retry.Do(cmd.Context(), retry.DefaultPolicy(), func(ctx context.Context) error {
				order, err := c.GetOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), order)
			})
		},
	}
}

func (o *RootOptions) client() (*client.Client, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	_ = log.Sync()
	return client.New(cfg.API.BaseURL, client.WithTimeout(cfg.API.RequestTimeout))
}
