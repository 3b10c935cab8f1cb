package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/transport"
	"github.com/sagarc03/datalake/upload"
)

const packagesPath = "/prod/packages"

func packagePath(id string) string {
	return packagesPath + "/" + id
}

// CreatePackage creates a package.
func (c *Client) CreatePackage(ctx context.Context, p CreatePackageParams) (transport.Response, error) {
	if err := validateParams("create package", p); err != nil {
		return transport.Response{}, err
	}
	var body packageBody
	body.Package.Name = p.Name
	body.Package.Description = p.Description
	body.Metadata = p.Metadata
	return c.send(ctx, http.MethodPost, packagesPath+"/new", body)
}

// UpdatePackage changes the name or description of a package.
func (c *Client) UpdatePackage(ctx context.Context, p UpdatePackageParams) (transport.Response, error) {
	if err := validateParams("update package", p); err != nil {
		return transport.Response{}, err
	}
	if p.Name == nil && p.Description == nil {
		return transport.Response{}, fmt.Errorf("update package: nothing to update: %w", datalake.ErrInvalidInput)
	}
	return c.send(ctx, http.MethodPut, packagePath(p.PackageID), p)
}

// DeletePackage deletes a package and its datasets.
func (c *Client) DeletePackage(ctx context.Context, p PackageParams) (transport.Response, error) {
	if err := validateParams("delete package", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodDelete, packagePath(p.PackageID), nil)
}

// DescribePackage fetches a package.
func (c *Client) DescribePackage(ctx context.Context, p PackageParams) (transport.Response, error) {
	if err := validateParams("describe package", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, packagePath(p.PackageID), nil)
}

// DescribePackageDatasets lists the datasets of a package.
func (c *Client) DescribePackageDatasets(ctx context.Context, p PackageParams) (transport.Response, error) {
	if err := validateParams("describe package datasets", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, upload.DatasetsPath(p.PackageID), nil)
}

// DescribePackageDataset fetches one dataset.
func (c *Client) DescribePackageDataset(ctx context.Context, p DatasetParams) (transport.Response, error) {
	if err := validateParams("describe package dataset", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, upload.DatasetPath(p.PackageID, p.DatasetID), nil)
}

// DeletePackageDataset deletes one dataset.
func (c *Client) DeletePackageDataset(ctx context.Context, p DatasetParams) (transport.Response, error) {
	if err := validateParams("delete package dataset", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodDelete, upload.DatasetPath(p.PackageID, p.DatasetID), nil)
}

// CreateMetadata adds metadata to a package.
func (c *Client) CreateMetadata(ctx context.Context, p CreateMetadataParams) (transport.Response, error) {
	if err := validateParams("create metadata", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodPost, packagePath(p.PackageID)+"/metadata/new", metadataBody{Metadata: p.Metadata})
}

// DescribeMetadata fetches the metadata of a package.
func (c *Client) DescribeMetadata(ctx context.Context, p PackageParams) (transport.Response, error) {
	if err := validateParams("describe metadata", p); err != nil {
		return transport.Response{}, err
	}
	return c.send(ctx, http.MethodGet, packagePath(p.PackageID)+"/metadata", nil)
}

// DescribeRequiredMetadata lists the metadata keys every package must carry.
func (c *Client) DescribeRequiredMetadata(ctx context.Context) (transport.Response, error) {
	return c.send(ctx, http.MethodPost, packagesPath, operationBody{Operation: "required_metadata"})
}
