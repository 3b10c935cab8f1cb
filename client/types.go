package client

import (
	"io"
)

// CreatePackageParams creates a package. Metadata is optional.
type CreatePackageParams struct {
	Name        string         `validate:"required"`
	Description string
	Metadata    map[string]any
}

// UpdatePackageParams changes a package. Nil fields are left untouched; at
// least one must be set.
type UpdatePackageParams struct {
	PackageID   string  `json:"-" validate:"required,excludesall=/?#"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PackageParams identifies a package.
type PackageParams struct {
	PackageID string `validate:"required,excludesall=/?#"`
}

// DatasetParams identifies a dataset within a package.
type DatasetParams struct {
	PackageID string `validate:"required,excludesall=/?#"`
	DatasetID string `validate:"required,excludesall=/?#"`
}

// UploadParams describes a dataset upload from an open stream. Body is read
// once, FileSize bytes long.
type UploadParams struct {
	PackageID   string    `validate:"required,excludesall=/?#"`
	FileName    string    `validate:"required"`
	FileSize    int64     `validate:"min=0"`
	ContentType string    `validate:"required"`
	Body        io.Reader `validate:"required"`
}

// SearchParams searches packages. Terms are separated by spaces.
type SearchParams struct {
	Terms string `validate:"required"`
}

// CreateMetadataParams adds metadata to a package.
type CreateMetadataParams struct {
	PackageID string         `validate:"required,excludesall=/?#"`
	Metadata  map[string]any `validate:"required,min=1"`
}

// CartItemParams identifies a cart item.
type CartItemParams struct {
	CartItemID string `validate:"required,excludesall=/?#"`
}

// CartFormat selects how checked-out packages are delivered.
type CartFormat string

// Cart checkout formats.
const (
	CartFormatBucketKey CartFormat = "BUCKET_KEY"
	CartFormatSignedURL CartFormat = "SIGNED_URL"
)

// WireValue is the format name sent to the API.
func (f CartFormat) WireValue() string {
	if f == CartFormatBucketKey {
		return "bucket-key"
	}
	return "signed-url"
}

// CheckoutParams checks out the cart.
type CheckoutParams struct {
	Format CartFormat `validate:"required,oneof=BUCKET_KEY SIGNED_URL"`
}

type packageBody struct {
	Package struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"package"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type metadataBody struct {
	Metadata map[string]any `json:"metadata"`
}

type operationBody struct {
	Operation string `json:"operation"`
	Format    string `json:"format,omitempty"`
}

type cartItemBody struct {
	PackageID string `json:"package_id"`
}
