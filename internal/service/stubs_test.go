package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"botdesk/internal/client/hummingbot"
	"botdesk/internal/models"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	strategies  []models.StrategyConfig
	instances   []models.BotInstance
	accounts    []models.Account
	credentials []models.Credential

	upsertStrategyErr error
	insertInstanceErr error
	updateControlErr  error

	insertedInstances []models.BotInstance
	deletedStrategies []uint64
	updatedActive     []string
	updatedStopped    []string
}

func (s *stubRepo) UpsertStrategyConfig(ctx context.Context, item *models.StrategyConfig) error {
	if s.upsertStrategyErr != nil {
		return s.upsertStrategyErr
	}
	for i := range s.strategies {
		if s.strategies[i].ExternalName == item.ExternalName {
			s.strategies[i] = *item
			return nil
		}
	}
	item.ID = uint64(len(s.strategies) + 1)
	s.strategies = append(s.strategies, *item)
	return nil
}

func (s *stubRepo) GetStrategyConfig(ctx context.Context, userID, displayName string) (*models.StrategyConfig, error) {
	for i := range s.strategies {
		if s.strategies[i].UserID == userID && s.strategies[i].DisplayName == displayName {
			item := s.strategies[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListStrategyConfigs(ctx context.Context, userID string) ([]models.StrategyConfig, error) {
	var out []models.StrategyConfig
	for _, item := range s.strategies {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) ListStrategyConfigsByNames(ctx context.Context, userID string, displayNames []string) ([]models.StrategyConfig, error) {
	wanted := make(map[string]bool, len(displayNames))
	for _, name := range displayNames {
		wanted[name] = true
	}
	var out []models.StrategyConfig
	for _, item := range s.strategies {
		if item.UserID == userID && wanted[item.DisplayName] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteStrategyConfig(ctx context.Context, id uint64) error {
	s.deletedStrategies = append(s.deletedStrategies, id)
	return nil
}

func (s *stubRepo) InsertBotInstance(ctx context.Context, item *models.BotInstance) error {
	if s.insertInstanceErr != nil {
		return s.insertInstanceErr
	}
	item.ID = uint64(len(s.instances) + 1)
	s.instances = append(s.instances, *item)
	s.insertedInstances = append(s.insertedInstances, *item)
	return nil
}

func (s *stubRepo) GetBotInstance(ctx context.Context, userID, displayName string) (*models.BotInstance, error) {
	for i := range s.instances {
		if s.instances[i].UserID == userID && s.instances[i].DisplayName == displayName {
			item := s.instances[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListBotInstances(ctx context.Context, userID string) ([]models.BotInstance, error) {
	var out []models.BotInstance
	for _, item := range s.instances {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) ListAllBotInstances(ctx context.Context) ([]models.BotInstance, error) {
	return append([]models.BotInstance(nil), s.instances...), nil
}

func (s *stubRepo) UpdateBotInstanceControllers(ctx context.Context, id uint64, active, stopped []string) error {
	if s.updateControlErr != nil {
		return s.updateControlErr
	}
	s.updatedActive = active
	s.updatedStopped = stopped
	for i := range s.instances {
		if s.instances[i].ID == id {
			s.instances[i].ActiveControllers = datatypes.NewJSONSlice(active)
			s.instances[i].StoppedControllers = datatypes.NewJSONSlice(stopped)
		}
	}
	return nil
}

func (s *stubRepo) InsertAccount(ctx context.Context, item *models.Account) error {
	item.ID = uint64(len(s.accounts) + 1)
	s.accounts = append(s.accounts, *item)
	return nil
}

func (s *stubRepo) GetAccount(ctx context.Context, userID, name string) (*models.Account, error) {
	for i := range s.accounts {
		if s.accounts[i].UserID == userID && s.accounts[i].Name == name {
			item := s.accounts[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	var out []models.Account
	for _, item := range s.accounts {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteAccount(ctx context.Context, id uint64) error {
	out := s.accounts[:0]
	for _, item := range s.accounts {
		if item.ID != id {
			out = append(out, item)
		}
	}
	s.accounts = out
	return nil
}

func (s *stubRepo) UpsertCredential(ctx context.Context, item *models.Credential) error {
	for i := range s.credentials {
		if s.credentials[i].AccountID == item.AccountID && s.credentials[i].ConnectorName == item.ConnectorName {
			s.credentials[i] = *item
			return nil
		}
	}
	item.ID = uint64(len(s.credentials) + 1)
	s.credentials = append(s.credentials, *item)
	return nil
}

func (s *stubRepo) GetCredential(ctx context.Context, accountID uint64, connectorName string) (*models.Credential, error) {
	for i := range s.credentials {
		if s.credentials[i].AccountID == accountID && s.credentials[i].ConnectorName == connectorName {
			item := s.credentials[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListCredentials(ctx context.Context, accountID uint64) ([]models.Credential, error) {
	var out []models.Credential
	for _, item := range s.credentials {
		if item.AccountID == accountID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteCredential(ctx context.Context, id uint64) error {
	out := s.credentials[:0]
	for _, item := range s.credentials {
		if item.ID != id {
			out = append(out, item)
		}
	}
	s.credentials = out
	return nil
}

func (s *stubRepo) DeleteCredentialsByAccount(ctx context.Context, accountID uint64) error {
	out := s.credentials[:0]
	for _, item := range s.credentials {
		if item.AccountID != accountID {
			out = append(out, item)
		}
	}
	s.credentials = out
	return nil
}

// stubOrchestrator records calls and returns programmable errors per
// operation.
type stubOrchestrator struct {
	upsertControllerErr    error
	deleteControllerErr    error
	deleteAllScriptsErr    error
	addScriptErr           error
	createInstanceErr      error
	updateControllerErr    error
	addAccountErr          error
	deleteAccountErr       error
	addConnectorKeysErr    error
	deleteCredentialErr    error
	availableConnectorsErr error

	// statusByName drives GetBotStatus; names absent from the map fail
	// with statusErr.
	statusByName map[string]*hummingbot.BotStatus
	statusErr    error

	upsertedConfigs   []string
	deletedConfigs    []string
	deleteAllCalls    int
	addedScripts      []hummingbot.ScriptConfig
	createdInstances  []hummingbot.CreateInstanceRequest
	updatedPatches    []map[string]any
	addedAccounts     []string
	deletedAccounts   []string
	connectorPayload  json.RawMessage
	configMapPayload  json.RawMessage
}

func (o *stubOrchestrator) UpsertControllerConfig(ctx context.Context, name string, content any) error {
	if o.upsertControllerErr != nil {
		return o.upsertControllerErr
	}
	o.upsertedConfigs = append(o.upsertedConfigs, name)
	return nil
}

func (o *stubOrchestrator) DeleteControllerConfig(ctx context.Context, name string) error {
	if o.deleteControllerErr != nil {
		return o.deleteControllerErr
	}
	o.deletedConfigs = append(o.deletedConfigs, name)
	return nil
}

func (o *stubOrchestrator) DeleteAllScriptConfigs(ctx context.Context) error {
	if o.deleteAllScriptsErr != nil {
		return o.deleteAllScriptsErr
	}
	o.deleteAllCalls++
	return nil
}

func (o *stubOrchestrator) AddScriptConfig(ctx context.Context, cfg hummingbot.ScriptConfig) error {
	if o.addScriptErr != nil {
		return o.addScriptErr
	}
	o.addedScripts = append(o.addedScripts, cfg)
	return nil
}

func (o *stubOrchestrator) CreateInstance(ctx context.Context, req hummingbot.CreateInstanceRequest) error {
	if o.createInstanceErr != nil {
		return o.createInstanceErr
	}
	o.createdInstances = append(o.createdInstances, req)
	return nil
}

func (o *stubOrchestrator) GetBotStatus(ctx context.Context, uniqueName string) (*hummingbot.BotStatus, error) {
	if status, ok := o.statusByName[uniqueName]; ok {
		return status, nil
	}
	return nil, o.statusErr
}

func (o *stubOrchestrator) UpdateControllerConfig(ctx context.Context, botUniqueName, controllerName string, patch map[string]any) error {
	if o.updateControllerErr != nil {
		return o.updateControllerErr
	}
	o.updatedPatches = append(o.updatedPatches, patch)
	return nil
}

func (o *stubOrchestrator) AddAccount(ctx context.Context, accountName string) error {
	if o.addAccountErr != nil {
		return o.addAccountErr
	}
	o.addedAccounts = append(o.addedAccounts, accountName)
	return nil
}

func (o *stubOrchestrator) DeleteAccount(ctx context.Context, accountName string) error {
	if o.deleteAccountErr != nil {
		return o.deleteAccountErr
	}
	o.deletedAccounts = append(o.deletedAccounts, accountName)
	return nil
}

func (o *stubOrchestrator) AddConnectorKeys(ctx context.Context, accountName, connectorName string, keys json.RawMessage) error {
	return o.addConnectorKeysErr
}

func (o *stubOrchestrator) DeleteCredential(ctx context.Context, accountName, connectorName string) error {
	return o.deleteCredentialErr
}

func (o *stubOrchestrator) AvailableConnectors(ctx context.Context) (json.RawMessage, error) {
	if o.availableConnectorsErr != nil {
		return nil, o.availableConnectorsErr
	}
	return o.connectorPayload, nil
}

func (o *stubOrchestrator) ConnectorConfigMap(ctx context.Context) (json.RawMessage, error) {
	return o.configMapPayload, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
