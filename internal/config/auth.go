package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"reorc-cli/internal/core"
)

// MCPDocument is the persisted server-connection document, conventionally
// stored at .cursor/mcp.json in the working tree. The server URL embeds the
// bearer token as an access_token query parameter; login rewrites the token
// in place and rewrites the whole file.
type MCPDocument struct {
	MCPServers map[string]*ServerEntry `json:"mcpServers"`
	Auth       *AuthSection            `json:"auth,omitempty"`
}

// ServerEntry names one MCP server connection.
type ServerEntry struct {
	URL string `json:"url"`
}

// AuthSection holds optional default login credentials.
type AuthSection struct {
	DefaultCredentials Credentials `json:"defaultCredentials"`
}

// Credentials are the login inputs for the auth API.
type Credentials struct {
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	TenantDomain string `json:"tenant_domain,omitempty"`
}

// AuthContext is the resolved connection state threaded into every component
// call: never read from globals, always passed explicitly.
type AuthContext struct {
	// BaseURL is the server URL with the /mcp path and query stripped,
	// e.g. "https://api.example.com".
	BaseURL string

	// Token is the bearer token extracted from the server URL.
	Token string

	serverName string
	doc        *MCPDocument
	path       string
}

var tokenPattern = regexp.MustCompile(`access_token=([^&]+)`)

// DefaultMCPPath returns the server-connection document path relative to
// the given base directory.
func DefaultMCPPath(baseDir string) string {
	return filepath.Join(baseDir, ".cursor", "mcp.json")
}

// LoadAuthContext reads the mcp.json document at path and resolves the
// server URL, base URL and token. A missing file, missing server entry or
// missing token is reported as ErrNotFound so commands can print a friendly
// error document.
func LoadAuthContext(path string) (*AuthContext, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: server configuration at %s", core.ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading server configuration: %w", err)
	}

	var doc MCPDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrUnexpectedShape, path, err)
	}

	name, entry := firstServer(&doc)
	if entry == nil {
		return nil, fmt.Errorf("%w: no MCP server configured in %s", core.ErrNotFound, path)
	}

	token := ExtractToken(entry.URL)
	if token == "" {
		return nil, fmt.Errorf("%w: no access token in server URL", core.ErrNotFound)
	}

	return &AuthContext{
		BaseURL:    ExtractBaseURL(entry.URL),
		Token:      token,
		serverName: name,
		doc:        &doc,
		path:       path,
	}, nil
}

// Credentials returns the configured default login credentials, if any.
func (a *AuthContext) Credentials() Credentials {
	if a.doc == nil || a.doc.Auth == nil {
		return Credentials{}
	}
	return a.doc.Auth.DefaultCredentials
}

// UpdateToken replaces the access_token parameter inside the stored server
// URL and rewrites the document file with two-space indentation.
func (a *AuthContext) UpdateToken(newToken string) error {
	entry := a.doc.MCPServers[a.serverName]
	entry.URL = tokenPattern.ReplaceAllString(entry.URL, "access_token="+newToken)
	a.Token = newToken

	out, err := json.MarshalIndent(a.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding server configuration: %w", err)
	}
	out = append(out, '\n')

	if err := os.WriteFile(a.path, out, 0644); err != nil {
		return fmt.Errorf("writing server configuration: %w", err)
	}
	return nil
}

// firstServer returns the first configured server entry. With multiple
// entries the pick is map-order dependent, same as the original tooling;
// in practice the document holds exactly one.
func firstServer(doc *MCPDocument) (string, *ServerEntry) {
	for name, entry := range doc.MCPServers {
		return name, entry
	}
	return "", nil
}

// ExtractBaseURL strips the "/mcp?" path and query parameters from a full
// server URL.
func ExtractBaseURL(serverURL string) string {
	base := strings.SplitN(serverURL, "/mcp?", 2)[0]
	return strings.TrimRight(base, "/")
}

// ExtractToken pulls the access_token query parameter out of a server URL.
// Returns "" when no token is present.
func ExtractToken(serverURL string) string {
	m := tokenPattern.FindStringSubmatch(serverURL)
	if m == nil {
		return ""
	}
	return m[1]
}
