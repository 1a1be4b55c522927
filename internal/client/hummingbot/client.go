package hummingbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client wraps the Hummingbot orchestrator REST API behind fixed basic-auth
// credentials. Every operation is a single HTTP call; failures are normalized
// into APIError and never retried here.
type Client struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hummingbot API error (%d): %s", e.Status, e.Detail)
}

func NewClient(httpClient *http.Client, host, username, password string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		username:   username,
		password:   password,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: extractDetail(body)}
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// extractDetail pulls the human-readable message out of an upstream error
// body. The orchestrator reports errors as {"detail": ...} where detail is
// usually a string but occasionally a structured object.
func extractDetail(body []byte) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && len(wrapper.Detail) > 0 {
		var s string
		if err := json.Unmarshal(wrapper.Detail, &s); err == nil {
			return s
		}
		return string(wrapper.Detail)
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) UpsertControllerConfig(ctx context.Context, name string, content any) error {
	if name == "" {
		return fmt.Errorf("config name is required")
	}
	payload := ControllerConfig{Name: name, Content: content}
	return c.doRequest(ctx, http.MethodPost, "/add-controller-config", nil, payload, nil)
}

func (c *Client) DeleteControllerConfig(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("config name is required")
	}
	query := url.Values{}
	query.Set("config_name", name+".yml")
	return c.doRequest(ctx, http.MethodPost, "/delete-controller-config", query, nil, nil)
}

func (c *Client) DeleteAllScriptConfigs(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/delete-all-script-configs", nil, nil, nil)
}

func (c *Client) AddScriptConfig(ctx context.Context, cfg ScriptConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("script config name is required")
	}
	return c.doRequest(ctx, http.MethodPost, "/add-script-config", nil, cfg, nil)
}

func (c *Client) CreateInstance(ctx context.Context, req CreateInstanceRequest) error {
	if req.InstanceName == "" {
		return fmt.Errorf("instance name is required")
	}
	return c.doRequest(ctx, http.MethodPost, "/create-hummingbot-instance", nil, req, nil)
}

func (c *Client) GetBotStatus(ctx context.Context, uniqueName string) (*BotStatus, error) {
	if uniqueName == "" {
		return nil, fmt.Errorf("bot unique name is required")
	}
	var envelope botStatusEnvelope
	if err := c.doRequest(ctx, http.MethodGet, "/get-bot-status/"+uniqueName, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) UpdateControllerConfig(ctx context.Context, botUniqueName, controllerName string, patch map[string]any) error {
	if botUniqueName == "" || controllerName == "" {
		return fmt.Errorf("bot and controller names are required")
	}
	path := "/update-controller-config/bot/" + botUniqueName + "/" + controllerName
	return c.doRequest(ctx, http.MethodPut, path, nil, patch, nil)
}

// Credential-profile operations.

func (c *Client) AddAccount(ctx context.Context, accountName string) error {
	if accountName == "" {
		return fmt.Errorf("account name is required")
	}
	query := url.Values{}
	query.Set("account_name", accountName)
	return c.doRequest(ctx, http.MethodPost, "/add-account", query, nil, nil)
}

func (c *Client) DeleteAccount(ctx context.Context, accountName string) error {
	if accountName == "" {
		return fmt.Errorf("account name is required")
	}
	query := url.Values{}
	query.Set("account_name", accountName)
	return c.doRequest(ctx, http.MethodPost, "/delete-account", query, nil, nil)
}

func (c *Client) AddConnectorKeys(ctx context.Context, accountName, connectorName string, keys json.RawMessage) error {
	if accountName == "" || connectorName == "" {
		return fmt.Errorf("account and connector names are required")
	}
	path := "/add-connector-keys/" + accountName + "/" + connectorName
	return c.doRequest(ctx, http.MethodPost, path, nil, keys, nil)
}

func (c *Client) DeleteCredential(ctx context.Context, accountName, connectorName string) error {
	if accountName == "" || connectorName == "" {
		return fmt.Errorf("account and connector names are required")
	}
	path := "/delete-credential/" + accountName + "/" + connectorName
	return c.doRequest(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) AvailableConnectors(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/available-connectors", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConnectorConfigMap(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/all-connectors-config-map", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
