package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"botdesk/internal/apperr"
	"botdesk/internal/cache"
	"botdesk/internal/models"
	"botdesk/internal/repository"
)

// AccountService manages credential profiles on the orchestrator and their
// local bookkeeping. Connector keys are forwarded to the orchestrator and
// never stored here; the local credential row only records which connectors
// an account has keys for.
type AccountService struct {
	Repo         repository.Repository
	Orchestrator Orchestrator
	Cache        *cache.Store
	Logger       *zap.Logger

	// ConnectorTTL bounds staleness of the cached connector catalog.
	ConnectorTTL time.Duration
}

const (
	connectorsCacheKey   = "botdesk:connectors"
	connectorMapCacheKey = "botdesk:connectors:config-map"
)

func (s *AccountService) CreateAccount(ctx context.Context, userID, accountName string) error {
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return apperr.Validationf("missing accountName")
	}
	externalName := accountName + "-" + userID

	if err := s.Orchestrator.AddAccount(ctx, externalName); err != nil {
		return asUpstream(err, "failed to create account on orchestrator")
	}
	record := &models.Account{
		UserID:       userID,
		Name:         accountName,
		ExternalName: externalName,
	}
	if err := s.Repo.InsertAccount(ctx, record); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return err
		}
		s.Logger.Error("account created remotely but local record write failed",
			zap.String("account", externalName),
			zap.Error(err),
		)
		return apperr.Persistencef("account created on orchestrator but could not be saved locally")
	}
	s.Logger.Info("account created",
		zap.String("user_id", userID),
		zap.String("account", accountName),
	)
	return nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountName string) error {
	account, err := s.Repo.GetAccount(ctx, userID, accountName)
	if err != nil {
		return err
	}
	if account == nil {
		return apperr.NotFoundf("account not found")
	}
	if err := s.Orchestrator.DeleteAccount(ctx, account.ExternalName); err != nil {
		return asUpstream(err, "failed to delete account from orchestrator")
	}
	if err := s.Repo.DeleteCredentialsByAccount(ctx, account.ID); err != nil {
		return apperr.Persistencef("account deleted remotely but local credentials could not be removed")
	}
	if err := s.Repo.DeleteAccount(ctx, account.ID); err != nil {
		return apperr.Persistencef("account deleted remotely but local record could not be removed")
	}
	s.Logger.Info("account deleted",
		zap.String("user_id", userID),
		zap.String("account", accountName),
	)
	return nil
}

// AddCredentials forwards connector keys to the orchestrator, then records
// the connector name locally. The keys themselves pass through untouched.
func (s *AccountService) AddCredentials(ctx context.Context, userID, accountName, connectorName string, keys json.RawMessage) error {
	if strings.TrimSpace(connectorName) == "" || len(keys) == 0 {
		return apperr.Validationf("missing connectorName or credential keys")
	}
	account, err := s.Repo.GetAccount(ctx, userID, accountName)
	if err != nil {
		return err
	}
	if account == nil {
		return apperr.NotFoundf("account not found")
	}
	if err := s.Orchestrator.AddConnectorKeys(ctx, account.ExternalName, connectorName, keys); err != nil {
		return asUpstream(err, "failed to add connector keys")
	}
	record := &models.Credential{
		AccountID:     account.ID,
		ConnectorName: connectorName,
		FileName:      connectorName + ".yml",
	}
	if err := s.Repo.UpsertCredential(ctx, record); err != nil {
		s.Logger.Error("connector keys stored remotely but local record write failed",
			zap.String("account", account.ExternalName),
			zap.String("connector", connectorName),
			zap.Error(err),
		)
		return apperr.Persistencef("connector keys stored but could not be recorded locally")
	}
	s.Logger.Info("connector keys added",
		zap.String("user_id", userID),
		zap.String("account", accountName),
		zap.String("connector", connectorName),
	)
	return nil
}

func (s *AccountService) DeleteCredentials(ctx context.Context, userID, accountName, connectorName string) error {
	account, err := s.Repo.GetAccount(ctx, userID, accountName)
	if err != nil {
		return err
	}
	if account == nil {
		return apperr.NotFoundf("account not found")
	}
	credential, err := s.Repo.GetCredential(ctx, account.ID, connectorName)
	if err != nil {
		return err
	}
	if credential == nil {
		return apperr.NotFoundf("credentials not found for connector %q", connectorName)
	}
	if err := s.Orchestrator.DeleteCredential(ctx, account.ExternalName, connectorName); err != nil {
		return asUpstream(err, "failed to delete connector keys from orchestrator")
	}
	if err := s.Repo.DeleteCredential(ctx, credential.ID); err != nil {
		return apperr.Persistencef("connector keys deleted remotely but local record could not be removed")
	}
	s.Logger.Info("connector keys deleted",
		zap.String("user_id", userID),
		zap.String("account", accountName),
		zap.String("connector", connectorName),
	)
	return nil
}

func (s *AccountService) UserAccounts(ctx context.Context, userID string) ([]string, error) {
	accounts, err := s.Repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		names = append(names, acc.Name)
	}
	return names, nil
}

func (s *AccountService) AccountCredentials(ctx context.Context, userID, accountName string) ([]string, error) {
	account, err := s.Repo.GetAccount(ctx, userID, accountName)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperr.NotFoundf("account not found")
	}
	credentials, err := s.Repo.ListCredentials(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	connectors := make([]string, 0, len(credentials))
	for _, cred := range credentials {
		connectors = append(connectors, cred.ConnectorName)
	}
	return connectors, nil
}

// Summary maps each of the user's account names to its connector list.
func (s *AccountService) Summary(ctx context.Context, userID string) (map[string][]string, error) {
	accounts, err := s.Repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := make(map[string][]string, len(accounts))
	for _, acc := range accounts {
		credentials, err := s.Repo.ListCredentials(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		connectors := make([]string, 0, len(credentials))
		for _, cred := range credentials {
			connectors = append(connectors, cred.ConnectorName)
		}
		summary[acc.Name] = connectors
	}
	return summary, nil
}

// AvailableConnectors returns the orchestrator's connector catalog. The
// catalog changes rarely, so responses are cached.
func (s *AccountService) AvailableConnectors(ctx context.Context) (json.RawMessage, error) {
	return s.cachedUpstream(ctx, connectorsCacheKey, "failed to fetch available connectors", s.Orchestrator.AvailableConnectors)
}

func (s *AccountService) ConnectorConfigMap(ctx context.Context) (json.RawMessage, error) {
	return s.cachedUpstream(ctx, connectorMapCacheKey, "failed to fetch connectors config map", s.Orchestrator.ConnectorConfigMap)
}

func (s *AccountService) cachedUpstream(ctx context.Context, key, fallback string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if b, ok, err := s.Cache.Get(ctx, key); err != nil {
		s.Logger.Warn("connector cache read failed", zap.Error(err))
	} else if ok {
		return json.RawMessage(b), nil
	}
	raw, err := fetch(ctx)
	if err != nil {
		return nil, asUpstream(err, fallback)
	}
	if err := s.Cache.Set(ctx, key, raw, s.ConnectorTTL); err != nil {
		s.Logger.Warn("connector cache write failed", zap.Error(err))
	}
	return raw, nil
}
