package repository

import (
	"context"

	"botdesk/internal/models"
)

// Repository is the persistence boundary for strategy configs, bot instances,
// accounts, and credentials. Uniqueness is enforced by the store's unique
// indexes; violations surface as apperr.Conflict from the implementation.
type Repository interface {
	// Strategy configs.
	UpsertStrategyConfig(ctx context.Context, item *models.StrategyConfig) error
	GetStrategyConfig(ctx context.Context, userID, displayName string) (*models.StrategyConfig, error)
	ListStrategyConfigs(ctx context.Context, userID string) ([]models.StrategyConfig, error)
	ListStrategyConfigsByNames(ctx context.Context, userID string, displayNames []string) ([]models.StrategyConfig, error)
	DeleteStrategyConfig(ctx context.Context, id uint64) error

	// Bot instances.
	InsertBotInstance(ctx context.Context, item *models.BotInstance) error
	GetBotInstance(ctx context.Context, userID, displayName string) (*models.BotInstance, error)
	ListBotInstances(ctx context.Context, userID string) ([]models.BotInstance, error)
	ListAllBotInstances(ctx context.Context) ([]models.BotInstance, error)
	UpdateBotInstanceControllers(ctx context.Context, id uint64, active, stopped []string) error

	// Accounts.
	InsertAccount(ctx context.Context, item *models.Account) error
	GetAccount(ctx context.Context, userID, name string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id uint64) error

	// Credentials.
	UpsertCredential(ctx context.Context, item *models.Credential) error
	GetCredential(ctx context.Context, accountID uint64, connectorName string) (*models.Credential, error)
	ListCredentials(ctx context.Context, accountID uint64) ([]models.Credential, error)
	DeleteCredential(ctx context.Context, id uint64) error
	DeleteCredentialsByAccount(ctx context.Context, accountID uint64) error
}
