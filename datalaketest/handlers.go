package datalaketest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (a *API) handlePackagesOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Operation != "required_metadata" {
		WriteError(w, http.StatusBadRequest, "invalid_operation", "Unknown operation: "+req.Operation)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"required_metadata": a.cfg.RequiredMetadata})
}

func (a *API) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Package.Name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_package", "Package name is required")
		return
	}

	p := &Package{
		PackageID:   uuid.NewString(),
		Name:        req.Package.Name,
		Description: req.Package.Description,
		Metadata:    req.Metadata,
		CreatedAt:   a.cfg.Now().UTC(),
		datasets:    make(map[string]*Dataset),
	}

	a.mu.Lock()
	a.packages[p.PackageID] = p
	out := p.snapshot()
	a.mu.Unlock()

	WriteJSON(w, http.StatusOK, out)
}

func (a *API) handleDescribePackage(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	WriteJSON(w, http.StatusOK, p.snapshot())
}

func (a *API) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	var req updatePackageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	WriteJSON(w, http.StatusOK, p.snapshot())
}

func (a *API) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "packageId")

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[id]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	for dsID := range p.datasets {
		delete(a.blobs, dsID)
	}
	delete(a.packages, id)
	WriteJSON(w, http.StatusOK, map[string]string{"package_id": id, "status": "deleted"})
}

func (a *API) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	WriteJSON(w, http.StatusOK, p.datasetList())
}

func (a *API) handleRegisterDataset(w http.ResponseWriter, r *http.Request) {
	if a.fault().FailRegister {
		WriteError(w, http.StatusInternalServerError, "internal_error", "Injected register failure")
		return
	}

	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Type != "dataset" {
		WriteError(w, http.StatusBadRequest, "invalid_dataset", "Dataset name and type are required")
		return
	}

	a.mu.Lock()
	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		a.mu.Unlock()
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}

	ds := &Dataset{
		DatasetID:   uuid.NewString(),
		PackageID:   p.PackageID,
		Name:        req.Name,
		Type:        req.Type,
		ContentType: req.ContentType,
		Status:      StatusRegistered,
		CreatedAt:   a.cfg.Now().UTC(),
	}
	p.datasets[ds.DatasetID] = ds
	token := uuid.NewString()
	a.uploads[token] = ds.DatasetID
	a.mu.Unlock()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	uploadURL := scheme + "://" + r.Host + "/upload/" + ds.DatasetID + "?token=" + token

	WriteJSON(w, http.StatusOK, map[string]string{
		"dataset_id": ds.DatasetID,
		"uploadUrl":  uploadURL,
	})
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetId")
	token := r.URL.Query().Get("token")

	a.mu.Lock()
	owner, ok := a.uploads[token]
	if ok && owner == datasetID {
		// one-time: the token is spent even if the transfer fails
		delete(a.uploads, token)
	}
	a.mu.Unlock()

	if !ok || owner != datasetID {
		WriteError(w, http.StatusForbidden, "unauthorized", "Invalid or expired upload URL")
		return
	}

	if a.fault().FailUpload {
		_, _ = io.Copy(io.Discard, r.Body)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Injected upload failure")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Failed to read body")
		return
	}
	if r.ContentLength >= 0 && int64(len(body)) != r.ContentLength {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Body does not match Content-Length")
		return
	}
	sum := sha256.Sum256(body)

	a.mu.Lock()
	defer a.mu.Unlock()

	ds := a.findDataset(datasetID)
	if ds == nil {
		WriteError(w, http.StatusNotFound, "not_found", "Dataset not found")
		return
	}
	ds.Size = int64(len(body))
	ds.Checksum = hex.EncodeToString(sum[:])
	ds.Status = StatusUploaded
	if ct := r.Header.Get("Content-Type"); ct != "" {
		ds.ContentType = ct
	}
	a.blobs[datasetID] = body

	w.WriteHeader(http.StatusOK)
}

func (a *API) handleDescribeDataset(w http.ResponseWriter, r *http.Request) {
	if a.fault().FailConfirm {
		WriteError(w, http.StatusInternalServerError, "internal_error", "Injected confirm failure")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	ds, ok := p.datasets[chi.URLParam(r, "datasetId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Dataset not found")
		return
	}
	WriteJSON(w, http.StatusOK, ds)
}

func (a *API) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetId")

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	if _, ok := p.datasets[datasetID]; !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Dataset not found")
		return
	}
	delete(p.datasets, datasetID)
	delete(a.blobs, datasetID)
	WriteJSON(w, http.StatusOK, map[string]string{"dataset_id": datasetID, "status": "deleted"})
}

func (a *API) handleCreateMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metadata map[string]any `json:"metadata"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	maps.Copy(p.Metadata, req.Metadata)
	WriteJSON(w, http.StatusOK, map[string]any{"package_id": p.PackageID, "metadata": p.Metadata})
}

func (a *API) handleDescribeMetadata(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.packages[chi.URLParam(r, "packageId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	md := p.Metadata
	if md == nil {
		md = map[string]any{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"package_id": p.PackageID, "metadata": md})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	// '+' in the query string decodes to a space
	terms := strings.Fields(strings.ToLower(r.URL.Query().Get("term")))

	results := make([]Package, 0)
	for _, p := range a.Packages() {
		text := strings.ToLower(p.Name + " " + p.Description)
		for _, term := range terms {
			if strings.Contains(text, term) {
				results = append(results, p)
				break
			}
		}
	}
	WriteJSON(w, http.StatusOK, results)
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageID string `json:"package_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.packages[req.PackageID]; !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Package not found")
		return
	}
	item := &CartItem{CartItemID: uuid.NewString(), PackageID: req.PackageID}
	a.cart[item.CartItemID] = item
	WriteJSON(w, http.StatusOK, item)
}

func (a *API) handleCartOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Operation != "checkout" {
		WriteError(w, http.StatusBadRequest, "invalid_operation", "Unknown operation: "+req.Operation)
		return
	}
	if req.Format != "bucket-key" && req.Format != "signed-url" {
		WriteError(w, http.StatusBadRequest, "invalid_format", "Unknown format: "+req.Format)
		return
	}

	items := a.cartItems()
	locations := make([]Location, 0, len(items))
	for _, item := range items {
		loc := Location{PackageID: item.PackageID}
		if req.Format == "bucket-key" {
			loc.Location = "s3://datalake/" + item.PackageID
		} else {
			loc.Location = "https://" + a.cfg.EndpointHost + "/download/" + item.PackageID + "?token=" + uuid.NewString()
		}
		locations = append(locations, loc)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"format": req.Format, "items": locations})
}

func (a *API) handleDescribeCart(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, a.cartItems())
}

func (a *API) handleDescribeCartItem(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	item, ok := a.cart[chi.URLParam(r, "cartItemId")]
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Cart item not found")
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cartItemId")

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.cart[id]; !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Cart item not found")
		return
	}
	delete(a.cart, id)
	WriteJSON(w, http.StatusOK, map[string]string{"cart_item_id": id, "status": "removed"})
}

func (a *API) cartItems() []CartItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]CartItem, 0, len(a.cart))
	for _, item := range a.cart {
		out = append(out, *item)
	}
	sortCart(out)
	return out
}

// findDataset must be called with a.mu held.
func (a *API) findDataset(datasetID string) *Dataset {
	for _, p := range a.packages {
		if ds, ok := p.datasets[datasetID]; ok {
			return ds
		}
	}
	return nil
}
