package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the cart",
}

var checkoutFormat string

var cartAddCmd = &cobra.Command{
	Use:   "add <package-id>",
	Short: "Add a package to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.AddCartItem(cmd.Context(), client.PackageParams{PackageID: args[0]}))
	}),
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Get locations for everything in the cart",
	Long: `Check out the cart.

--format selects the delivery: bucket-key returns storage bucket keys,
signed-url returns pre-signed download URLs.`,
	Args: cobra.NoArgs,
	RunE: withSession(false, func(cmd *cobra.Command, _ []string, s *session) error {
		format, err := parseCartFormat(checkoutFormat)
		if err != nil {
			return err
		}
		return printResponse(s.client.CheckoutCart(cmd.Context(), client.CheckoutParams{Format: format}))
	}),
}

var cartDescribeCmd = &cobra.Command{
	Use:   "describe",
	Short: "List the cart",
	Args:  cobra.NoArgs,
	RunE: withSession(false, func(cmd *cobra.Command, _ []string, s *session) error {
		return printResponse(s.client.DescribeCart(cmd.Context()))
	}),
}

var cartItemCmd = &cobra.Command{
	Use:   "item <cart-item-id>",
	Short: "Show one cart item",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.DescribeCartItem(cmd.Context(), client.CartItemParams{CartItemID: args[0]}))
	}),
}

var cartRemoveCmd = &cobra.Command{
	Use:     "remove <cart-item-id>",
	Aliases: []string{"rm"},
	Short:   "Remove an item from the cart",
	Args:    cobra.ExactArgs(1),
	RunE: withSession(false, func(cmd *cobra.Command, args []string, s *session) error {
		return printResponse(s.client.RemoveCartItem(cmd.Context(), client.CartItemParams{CartItemID: args[0]}))
	}),
}

func init() {
	cartCheckoutCmd.Flags().StringVarP(&checkoutFormat, "format", "f", "signed-url", "delivery format: bucket-key, signed-url")

	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartCheckoutCmd)
	cartCmd.AddCommand(cartDescribeCmd)
	cartCmd.AddCommand(cartItemCmd)
	cartCmd.AddCommand(cartRemoveCmd)
}

// parseCartFormat accepts bucket-key / BUCKET_KEY style names.
func parseCartFormat(s string) (client.CartFormat, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case string(client.CartFormatBucketKey):
		return client.CartFormatBucketKey, nil
	case string(client.CartFormatSignedURL):
		return client.CartFormatSignedURL, nil
	}
	return "", fmt.Errorf("unknown checkout format %q (want bucket-key or signed-url)", s)
}
