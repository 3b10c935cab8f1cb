package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/transport"
)

// UploadOutcome is the result of uploading one local file.
type UploadOutcome struct {
	LocalPath string
	PackageID string
	Size      int64
	DatasetID string
	Record    json.RawMessage
	Err       error
}

// Formatter renders command results.
type Formatter interface {
	FormatResponse(w io.Writer, resp transport.Response) error
	FormatUpload(w io.Writer, results []UploadOutcome) error
	FormatOrphans(w io.Writer, entries []journal.Entry) error
	FormatCleanup(w io.Writer, results []CleanupResult) error
	FormatToken(w io.Writer, token string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns a JSON or human formatter.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter writes readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatResponse prints the status line and the indented body.
func (f *HumanFormatter) FormatResponse(w io.Writer, resp transport.Response) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Status: %d\n", resp.StatusCode)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatUpload prints one line per file.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadOutcome) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			if hint := cleanupHint(r.Err); hint != "" {
				_, _ = fmt.Fprintf(w, "  %s\n", hint)
			}
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s -> %s/%s (%s)\n", r.LocalPath, r.PackageID, r.DatasetID, formatSize(r.Size))
		}
	}
	return nil
}

// FormatOrphans prints orphaned uploads as a table.
func (f *HumanFormatter) FormatOrphans(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No orphaned datasets")
		return nil
	}

	_, _ = fmt.Fprintf(w, "%-36s  %-36s  %-8s  %10s  %s\n", "PACKAGE", "DATASET", "STAGE", "SIZE", "NAME")
	for i := range entries {
		e := &entries[i]
		_, _ = fmt.Fprintf(w, "%-36s  %-36s  %-8s  %10s  %s\n",
			e.PackageID, e.DatasetID, e.Stage, formatSize(e.Size), e.Name)
	}
	_, _ = fmt.Fprintf(w, "\n%d orphaned dataset(s)\n", len(entries))
	return nil
}

// FormatCleanup prints one line per orphan.
func (f *HumanFormatter) FormatCleanup(w io.Writer, results []CleanupResult) error {
	if len(results) == 0 && !f.Quiet {
		_, _ = fmt.Fprintln(w, "Nothing to clean up")
		return nil
	}
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil:
			_, _ = fmt.Fprintf(w, "Error: %s/%s - %v\n", r.Entry.PackageID, r.Entry.DatasetID, r.Err)
		case f.Quiet:
		case r.Gone:
			_, _ = fmt.Fprintf(w, "Already gone: %s/%s\n", r.Entry.PackageID, r.Entry.DatasetID)
		default:
			_, _ = fmt.Fprintf(w, "Deleted: %s/%s\n", r.Entry.PackageID, r.Entry.DatasetID)
		}
	}
	return nil
}

// FormatToken prints the token.
func (f *HumanFormatter) FormatToken(w io.Writer, token string) error {
	_, _ = fmt.Fprintln(w, token)
	return nil
}

// FormatError prints the error, with a cleanup hint when a dataset was left
// behind.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	if hint := cleanupHint(err); hint != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", hint)
	}
	return nil
}

// FormatProfileList prints profiles as a table; * marks the default.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	maxNameLen := 4
	maxHostLen := 13
	for i := range profiles {
		maxNameLen = max(maxNameLen, len(profiles[i].Name))
		maxHostLen = max(maxHostLen, len(profiles[i].EndpointHost))
	}
	maxNameLen = min(maxNameLen, 20)
	maxHostLen = min(maxHostLen, 50)

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxHostLen, "ENDPOINT HOST", "ACCESS KEY")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxHostLen), strings.Repeat("-", 20))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n",
			marker,
			maxNameLen, truncate(p.Name, maxNameLen),
			maxHostLen, truncate(p.EndpointHost, maxHostLen),
			maskSecret(p.AccessKey, showSecrets))
	}
	return nil
}

// FormatProfileShow prints one profile.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:          %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprint(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint Host: %s\n", profile.EndpointHost)
	if profile.BaseURL != "" {
		_, _ = fmt.Fprintf(w, "Base URL:      %s\n", profile.BaseURL)
	}
	_, _ = fmt.Fprintf(w, "Access Key:    %s\n", maskSecret(profile.AccessKey, showSecrets))
	_, _ = fmt.Fprintf(w, "Secret Key:    %s\n", maskSecret(profile.SecretKey, showSecrets))
	return nil
}

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

// FormatResponse writes the status code and the body as sent.
func (f *JSONFormatter) FormatResponse(w io.Writer, resp transport.Response) error {
	return writeJSON(w, struct {
		StatusCode int             `json:"status_code"`
		Body       json.RawMessage `json:"body"`
	}{resp.StatusCode, resp.Body})
}

// FormatUpload writes one object per file.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadOutcome) error {
	type jsonResult struct {
		LocalPath string          `json:"local_path"`
		PackageID string          `json:"package_id"`
		DatasetID string          `json:"dataset_id,omitempty"`
		Size      int64           `json:"size_bytes"`
		Record    json.RawMessage `json:"record,omitempty"`
		Stage     datalake.Stage  `json:"failed_stage,omitempty"`
		Error     string          `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			LocalPath: r.LocalPath,
			PackageID: r.PackageID,
			DatasetID: r.DatasetID,
			Size:      r.Size,
			Record:    r.Record,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
			var se *datalake.StageError
			if errors.As(r.Err, &se) {
				jr.Stage = se.Stage
				jr.DatasetID = se.DatasetID
			}
		}
		output[i] = jr
	}
	return writeJSON(w, output)
}

// FormatOrphans writes the journal entries.
func (f *JSONFormatter) FormatOrphans(w io.Writer, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return writeJSON(w, struct {
		Items []journal.Entry `json:"items"`
	}{entries})
}

// FormatCleanup writes one object per orphan.
func (f *JSONFormatter) FormatCleanup(w io.Writer, results []CleanupResult) error {
	type jsonResult struct {
		PackageID string `json:"package_id"`
		DatasetID string `json:"dataset_id"`
		Cleaned   bool   `json:"cleaned"`
		Gone      bool   `json:"gone,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			PackageID: r.Entry.PackageID,
			DatasetID: r.Entry.DatasetID,
			Cleaned:   r.Err == nil,
			Gone:      r.Gone,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}
	return writeJSON(w, output)
}

// FormatToken writes {"token": ...}.
func (f *JSONFormatter) FormatToken(w io.Writer, token string) error {
	return writeJSON(w, struct {
		Token string `json:"token"`
	}{token})
}

// FormatError writes the error and, for upload failures, the stage.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error     string         `json:"error"`
		Stage     datalake.Stage `json:"failed_stage,omitempty"`
		DatasetID string         `json:"dataset_id,omitempty"`
		Status    int            `json:"status_code,omitempty"`
	}{
		Error: err.Error(),
	}

	var se *datalake.StageError
	if errors.As(err, &se) {
		output.Stage = se.Stage
		output.DatasetID = se.DatasetID
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		output.Status = apiErr.StatusCode
	}
	return writeJSON(w, output)
}

// FormatProfileList writes profiles with masked secrets unless showSecrets.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}
	for i := range profiles {
		output.Profiles[i] = newJSONProfile(profiles[i], profiles[i].Name == defaultName, showSecrets)
	}
	return writeJSON(w, output)
}

// FormatProfileShow writes one profile.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	return writeJSON(w, newJSONProfile(profile, isDefault, showSecrets))
}

type jsonProfile struct {
	Name         string `json:"name"`
	EndpointHost string `json:"endpoint_host"`
	BaseURL      string `json:"base_url,omitempty"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	Default      bool   `json:"default"`
}

func newJSONProfile(p Profile, isDefault, showSecrets bool) jsonProfile {
	return jsonProfile{
		Name:         p.Name,
		EndpointHost: p.EndpointHost,
		BaseURL:      p.BaseURL,
		AccessKey:    maskSecret(p.AccessKey, showSecrets),
		SecretKey:    maskSecret(p.SecretKey, showSecrets),
		Default:      isDefault,
	}
}

func cleanupHint(err error) string {
	var se *datalake.StageError
	if !errors.As(err, &se) || !se.RemoteSideEffect() || se.DatasetID == "" {
		return ""
	}
	return fmt.Sprintf("dataset %s was registered and left in place; 'dataset cleanup' removes it", se.DatasetID)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// maskSecret shows the first and last four characters of a secret.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
