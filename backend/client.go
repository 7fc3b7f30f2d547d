package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/rentdesk/rentdesk/internal/config"
	apperrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/utils"
)

// Fixed method paths on the document backend, used when the backend
// publishes no OIDC discovery document.
const (
	authorizePath = "/api/method/frappe.integrations.oauth2.authorize"
	tokenPath     = "/api/method/frappe.integrations.oauth2.get_token"
	profilePath   = "/api/method/frappe.integrations.oauth2.openid_profile"
	resourcePath  = "/api/resource/"
)

// Client talks to the document backend that owns all business data. It
// covers the OAuth2 token endpoints, the OpenID profile surface, and the
// generic document-resource API the portal orchestrates.
type Client struct {
	baseURL     string
	clientID    string
	redirectURI string
	scopes      []string
	httpClient  *http.Client

	authURL  string
	tokenURL string
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client (primarily for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(cfg config.BackendConfig, options ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.GetBackendURL(), "/"),
		clientID:    cfg.GetOAuthClientID(),
		redirectURI: cfg.GetOAuthRedirectURI(),
		scopes:      strings.Fields(cfg.GetOAuthScope()),
		httpClient:  http.DefaultClient,
	}
	c.authURL = c.baseURL + authorizePath
	c.tokenURL = c.baseURL + tokenPath

	for _, opt := range options {
		opt(c)
	}
	return c
}

// DiscoverEndpoints attempts OIDC discovery against the backend and swaps in
// the published authorize/token endpoints. Best effort: backends without a
// discovery document keep the fixed method paths.
func (c *Client) DiscoverEndpoints(ctx context.Context) {
	provider, err := oidc.NewProvider(ctx, c.baseURL)
	if err != nil {
		log.Debug().Err(err).Str("backend", c.baseURL).Msg("no OIDC discovery document, using fixed endpoints")
		return
	}
	endpoint := provider.Endpoint()
	if endpoint.AuthURL != "" {
		c.authURL = endpoint.AuthURL
	}
	if endpoint.TokenURL != "" {
		c.tokenURL = endpoint.TokenURL
	}
	log.Info().Str("authorize", c.authURL).Str("token", c.tokenURL).Msg("discovered backend OAuth endpoints")
}

// OAuth2Config returns the oauth2 configuration used to build authorization
// request URLs against the backend.
func (c *Client) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: c.redirectURI,
		Scopes:      c.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.authURL,
			TokenURL: c.tokenURL,
		},
	}
}

// ExchangeCode swaps an authorization code for a token triple.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {c.clientID},
		"redirect_uri": {c.redirectURI},
		"scope":        {strings.Join(c.scopes, " ")},
	}
	return c.postToken(ctx, form)
}

// RefreshGrant exchanges a refresh token for a new token triple.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"scope":         {strings.Join(c.scopes, " ")},
	}
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[postToken] NewRequest")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrNetwork, "[postToken] %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrNetwork, "[postToken] read body: %v", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Wrapf(apperrors.ErrBackend, "[postToken] %s", errorMessage(body, "token request failed"))
	}

	tokenResponse, err := decodeTokenResponse(body)
	if err != nil {
		return nil, err
	}
	if utils.Value(tokenResponse.AccessToken) == "" {
		return nil, errors.Wrapf(apperrors.ErrMissingAccessToken, "[postToken] %s", errorMessage(body, "empty token response"))
	}
	return tokenResponse, nil
}

// OpenIDProfile fetches the authenticated user's OpenID profile, including
// the email and role claims the session is derived from.
func (c *Client) OpenIDProfile(ctx context.Context, accessToken string) (map[string]any, error) {
	doc, err := c.getJSON(ctx, c.baseURL+profilePath, accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OpenIDProfile]")
	}
	return unwrapObject(doc, "message"), nil
}

// UserRecord fetches the extended user document by email.
func (c *Client) UserRecord(ctx context.Context, accessToken, email string) (map[string]any, error) {
	doc, err := c.getJSON(ctx, c.baseURL+resourcePath+"User/"+url.PathEscape(email), accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[UserRecord]")
	}
	return unwrapObject(doc, "data"), nil
}

// ListDocs lists documents of the given doctype. Filters are equality
// matches; a zero page length asks the backend for all rows.
func (c *Client) ListDocs(ctx context.Context, accessToken, doctype string, filters map[string]string) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("limit_page_length", "0")
	if len(filters) > 0 {
		conditions := make([][]string, 0, len(filters))
		for field, value := range filters {
			conditions = append(conditions, []string{field, "=", value})
		}
		encoded, err := json.Marshal(conditions)
		if err != nil {
			return nil, errors.Wrap(err, "[ListDocs] marshal filters")
		}
		query.Set("filters", string(encoded))
	}

	rawURL := c.baseURL + resourcePath + url.PathEscape(doctype) + "?" + query.Encode()
	doc, err := c.getJSON(ctx, rawURL, accessToken)
	if err != nil {
		return nil, errors.Wrapf(err, "[ListDocs] %s", doctype)
	}

	rows, _ := doc["data"].([]any)
	docs := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]any); ok {
			docs = append(docs, m)
		}
	}
	return docs, nil
}

// GetDoc fetches a single document by name.
func (c *Client) GetDoc(ctx context.Context, accessToken, doctype, name string) (map[string]any, error) {
	doc, err := c.getJSON(ctx, c.docURL(doctype, name), accessToken)
	if err != nil {
		return nil, errors.Wrapf(err, "[GetDoc] %s/%s", doctype, name)
	}
	return unwrapObject(doc, "data"), nil
}

// CreateDoc inserts a new document and returns the stored version.
func (c *Client) CreateDoc(ctx context.Context, accessToken, doctype string, fields map[string]any) (map[string]any, error) {
	doc, err := c.sendJSON(ctx, http.MethodPost, c.baseURL+resourcePath+url.PathEscape(doctype), accessToken, fields)
	if err != nil {
		return nil, errors.Wrapf(err, "[CreateDoc] %s", doctype)
	}
	return unwrapObject(doc, "data"), nil
}

// UpdateDoc applies a partial update to a document.
func (c *Client) UpdateDoc(ctx context.Context, accessToken, doctype, name string, fields map[string]any) (map[string]any, error) {
	doc, err := c.sendJSON(ctx, http.MethodPut, c.docURL(doctype, name), accessToken, fields)
	if err != nil {
		return nil, errors.Wrapf(err, "[UpdateDoc] %s/%s", doctype, name)
	}
	return unwrapObject(doc, "data"), nil
}

// DeleteDoc removes a document.
func (c *Client) DeleteDoc(ctx context.Context, accessToken, doctype, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.docURL(doctype, name), nil)
	if err != nil {
		return errors.Wrap(err, "[DeleteDoc] NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(apperrors.ErrNetwork, "[DeleteDoc] %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return errors.Wrapf(apperrors.ErrBackend, "[DeleteDoc] %s", errorMessage(body, "delete failed"))
	}
	return nil
}

// SubmitDoc moves a draft document (docstatus 0) to submitted (docstatus 1).
func (c *Client) SubmitDoc(ctx context.Context, accessToken, doctype, name string) (map[string]any, error) {
	doc, err := c.UpdateDoc(ctx, accessToken, doctype, name, map[string]any{"docstatus": 1})
	if err != nil {
		return nil, errors.Wrap(err, "[SubmitDoc]")
	}
	return doc, nil
}

func (c *Client) docURL(doctype, name string) string {
	return fmt.Sprintf("%s%s%s/%s", c.baseURL, resourcePath, url.PathEscape(doctype), url.PathEscape(name))
}

func (c *Client) getJSON(ctx context.Context, rawURL, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.doJSON(req)
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL, accessToken string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req)
}

func (c *Client) doJSON(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrNetwork, "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrNetwork, "read body: %v", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Wrapf(apperrors.ErrBackend, "%s", errorMessage(body, "request failed"))
	}

	doc := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, errors.Wrap(err, "unmarshal body")
		}
	}
	return doc, nil
}

// unwrapObject returns doc[key] when the backend wrapped the payload in an
// envelope, otherwise the document itself.
func unwrapObject(doc map[string]any, key string) map[string]any {
	if inner, ok := doc[key].(map[string]any); ok {
		return inner
	}
	return doc
}
