package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/retry"
	"github.com/spf13/cobra"
)

// CartOptions holds flags for the cart commands.
type CartOptions struct {
	*RootOptions
	Session string
	Retries int
}

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and edit a backend cart",
		Long: `Work on a shop backend cart directly.

Each command prints the cart and the backend session id. Pass that id back
with --session to keep working on the same cart.

Example:
  storefront cart add 12 --qty 2
  storefront cart update 7 3 --session 5f0c...
  storefront cart clear --session 5f0c...`,
	}

	cmd.PersistentFlags().StringVar(&opts.Session, "session", "", "backend session id to resume")
	cmd.PersistentFlags().IntVar(&opts.Retries, "retries", 3, "attempts for idempotent calls")

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0])
			if err != nil {
				return err
			}
			// Not retried: a repeated add would double the quantity.
			return opts.run(cmd, false, func(ctx context.Context, s *cart.Store) error {
				return s.AddToCart(ctx, productID, qty)
			})
		},
	}
	add.Flags().IntVar(&qty, "qty", 1, "quantity to add")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, true, func(ctx context.Context, s *cart.Store) error {
					return s.Refresh(ctx)
				})
			},
		},
		add,
		&cobra.Command{
			Use:   "update <item-id> <quantity>",
			Short: "Set the quantity of a cart line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				itemID, err := parseID(args[0])
				if err != nil {
					return err
				}
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				return opts.run(cmd, true, func(ctx context.Context, s *cart.Store) error {
					if err := s.Refresh(ctx); err != nil {
						return err
					}
					return s.UpdateCartItem(ctx, itemID, quantity)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <item-id>",
			Short: "Remove a cart line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				itemID, err := parseID(args[0])
				if err != nil {
					return err
				}
				return opts.run(cmd, true, func(ctx context.Context, s *cart.Store) error {
					return s.RemoveFromCart(ctx, itemID)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, true, func(ctx context.Context, s *cart.Store) error {
					return s.ClearCart(ctx)
				})
			},
		},
	)

	return cmd
}

type cartOutput struct {
	Session string              `json:"session"`
	Cart    domain.CartSnapshot `json:"cart"`
	Totals  domain.Totals       `json:"totals"`
}

func (o *CartOptions) run(cmd *cobra.Command, idempotent bool, op func(context.Context, *cart.Store) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := client.New(cfg.API.BaseURL, client.WithTimeout(cfg.API.RequestTimeout), client.WithSession(o.Session))
	if err != nil {
		return err
	}
	store := cart.NewStore(c, log, cart.WithTimeout(cfg.API.RequestTimeout))

	policy := retry.DefaultPolicy()
	policy.Attempts = o.Retries
	if !idempotent {
		policy.Attempts = 1
	}
	if err := retry.Do(cmd.Context(), policy, func(ctx context.Context) error {
		return op(ctx, store)
	}); err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), cartOutput{
		Session: c.Session(),
		Cart:    store.Snapshot(),
		Totals:  store.Totals(),
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
