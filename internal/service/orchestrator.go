package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"botdesk/internal/apperr"
	"botdesk/internal/client/hummingbot"
)

// Orchestrator is the boundary to the external bot-deployment API, satisfied
// by *hummingbot.Client and stubbed in tests.
type Orchestrator interface {
	UpsertControllerConfig(ctx context.Context, name string, content any) error
	DeleteControllerConfig(ctx context.Context, name string) error
	DeleteAllScriptConfigs(ctx context.Context) error
	AddScriptConfig(ctx context.Context, cfg hummingbot.ScriptConfig) error
	CreateInstance(ctx context.Context, req hummingbot.CreateInstanceRequest) error
	GetBotStatus(ctx context.Context, uniqueName string) (*hummingbot.BotStatus, error)
	UpdateControllerConfig(ctx context.Context, botUniqueName, controllerName string, patch map[string]any) error

	AddAccount(ctx context.Context, accountName string) error
	DeleteAccount(ctx context.Context, accountName string) error
	AddConnectorKeys(ctx context.Context, accountName, connectorName string, keys json.RawMessage) error
	DeleteCredential(ctx context.Context, accountName, connectorName string) error
	AvailableConnectors(ctx context.Context) (json.RawMessage, error)
	ConnectorConfigMap(ctx context.Context) (json.RawMessage, error)
}

// asUpstream normalizes an orchestrator failure: the upstream detail and
// status pass through when present, otherwise the fallback message with a
// 500. Transport errors carry no status and get the fallback.
func asUpstream(err error, fallback string) error {
	var apiErr *hummingbot.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Detail
		if msg == "" {
			msg = fallback
		}
		return apperr.Upstream(msg, apiErr.Status)
	}
	return apperr.Upstream(fallback, http.StatusInternalServerError)
}

func upstreamNotFound(err error) bool {
	var apiErr *hummingbot.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}
