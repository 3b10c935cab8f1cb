package client

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/sagarc03/datalake/upload"
)

// UploadPackageDataset registers a dataset, streams Body to the one-time
// upload URL and confirms it. Failures are *datalake.StageError.
func (c *Client) UploadPackageDataset(ctx context.Context, p UploadParams) (*upload.Result, error) {
	if err := validateParams("upload package dataset", p); err != nil {
		return nil, err
	}
	return c.uploader.Run(ctx, &upload.Plan{
		PackageID:   p.PackageID,
		Name:        p.FileName,
		Size:        p.FileSize,
		ContentType: p.ContentType,
		Body:        p.Body,
	})
}

// UploadFile uploads a local file as a dataset named after its base name. An
// empty contentType is detected from the extension.
func (c *Client) UploadFile(ctx context.Context, packageID, localPath, contentType string) (*upload.Result, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload file: %s is a directory", localPath)
	}

	if contentType == "" {
		contentType = DetectContentType(localPath)
	}

	return c.UploadPackageDataset(ctx, UploadParams{
		PackageID:   packageID,
		FileName:    filepath.Base(localPath),
		FileSize:    info.Size(),
		ContentType: contentType,
		Body:        file,
	})
}

// DetectContentType guesses a MIME type from the file extension, falling
// back to application/octet-stream.
func DetectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
