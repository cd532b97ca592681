package vespa

import (
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"
)

//go:embed schemas/services.xml schemas/chunk.sd.tmpl
var schemaFS embed.FS

// Deployer pushes the chunk application package to a Vespa config server
type Deployer struct {
	httpClient *http.Client
}

// NewDeployer creates a new Vespa deployer
func NewDeployer() *Deployer {
	return &Deployer{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Deploy builds the application package for the given embedding
// dimensionality and activates it on the config server at endpoint.
func (d *Deployer) Deploy(ctx context.Context, endpoint string, dimensions int) error {
	endpoint, err := validateEndpoint(endpoint)
	if err != nil {
		return err
	}
	if dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	schemaContent, err := generateSchema(dimensions)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	servicesContent, err := schemaFS.ReadFile("schemas/services.xml")
	if err != nil {
		return fmt.Errorf("failed to read services.xml: %w", err)
	}
	zipData, err := createAppPackage(servicesContent, schemaContent)
	if err != nil {
		return fmt.Errorf("failed to create app package: %w", err)
	}

	deployURL := fmt.Sprintf("%s/application/v2/tenant/default/prepareandactivate", endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deployURL, bytes.NewReader(zipData))
	if err != nil {
		return fmt.Errorf("failed to create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deployment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deployment failed with status %s: %s", resp.Status, string(body))
	}
	return nil
}

// validateEndpoint accepts only absolute http(s) URLs
func validateEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint host is required")
	}
	return endpoint, nil
}

// generateSchema renders the chunk schema for the embedding dimensionality
func generateSchema(dimensions int) ([]byte, error) {
	tmplContent, err := schemaFS.ReadFile("schemas/chunk.sd.tmpl")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("schema").Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	data := struct {
		Dimensions int
	}{
		Dimensions: dimensions,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// createAppPackage zips services.xml and the chunk schema
func createAppPackage(services, schema []byte) ([]byte, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	files := []struct {
		name string
		data []byte
	}{
		{"services.xml", services},
		{"schemas/chunk.sd", schema},
	}
	for _, f := range files {
		w, err := zipWriter.Create(f.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
