package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sagarc03/datalake/transport"
)

const (
	cartPath   = "/prod/cart"
	searchPath = "/prod/search"
)

// AddCartItem adds a package to the cart.
func (c *Client) AddCartItem(ctx context.Context, p PackageParams) (transport.Response, error) {
	if err := validateParams("add cart item", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodPost, cartPath+"/new", cartItemBody{PackageID: p.PackageID})
}

// CheckoutCart returns delivery locations for everything in the cart.
func (c *Client) CheckoutCart(ctx context.Context, p CheckoutParams) (transport.Response, error) {
	if err := validateParams("checkout cart", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodPost, cartPath+"/", operationBody{
		Operation: "checkout",
		Format:    p.Format.WireValue(),
	})
}

// DescribeCart lists the cart.
func (c *Client) DescribeCart(ctx context.Context) (transport.Response, error) {
	return c.send(ctx, http.MethodGet, cartPath+"/", nil)
}

// DescribeCartItem fetches one cart item.
func (c *Client) DescribeCartItem(ctx context.Context, p CartItemParams) (transport.Response, error) {
	if err := validateParams("describe cart item", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, cartPath+"/"+p.CartItemID, nil)
}

// RemoveCartItem removes one item from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, p CartItemParams) (transport.Response, error) {
	if err := validateParams("remove cart item", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodDelete, cartPath+"/"+p.CartItemID, nil)
}

// Search finds packages matching the space separated terms. Spaces are sent
// as '+'.
func (c *Client) Search(ctx context.Context, p SearchParams) (transport.Response, error) {
	if err := validateParams("search", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, searchPath+"?term="+url.QueryEscape(p.Terms), nil)
}
