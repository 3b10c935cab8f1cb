package datalaketest

import (
	"maps"
	"sort"
	"time"
)

// Dataset status values.
const (
	StatusRegistered = "registered"
	StatusUploaded   = "uploaded"
)

// Package is a stored package.
type Package struct {
	PackageID   string         `json:"package_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	datasets map[string]*Dataset
}

func (p *Package) snapshot() Package {
	out := *p
	out.Metadata = maps.Clone(p.Metadata)
	out.datasets = nil
	return out
}

func (p *Package) datasetList() []Dataset {
	out := make([]Dataset, 0, len(p.datasets))
	for _, d := range p.datasets {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Dataset is a stored dataset record.
type Dataset struct {
	DatasetID   string    `json:"dataset_id"`
	PackageID   string    `json:"package_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartItem is a package added to the cart.
type CartItem struct {
	CartItemID string `json:"cart_item_id"`
	PackageID  string `json:"package_id"`
}

// Location is one checked-out cart item.
type Location struct {
	PackageID string `json:"package_id"`
	Location  string `json:"location"`
}

type packageRequest struct {
	Package struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"package"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type updatePackageRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
}

type operationRequest struct {
	Operation string `json:"operation"`
	Format    string `json:"format"`
}

func sortCart(items []CartItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PackageID != items[j].PackageID {
			return items[i].PackageID < items[j].PackageID
		}
		return items[i].CartItemID < items[j].CartItemID
	})
}
