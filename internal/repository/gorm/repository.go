package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"botdesk/internal/apperr"
	"botdesk/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translate maps store-level duplicate-key failures to the conflict class so
// callers can distinguish them from generic storage faults.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("record already exists")
	}
	return err
}

// --- Strategy configs -------------------------------------------------------

func (s *Store) UpsertStrategyConfig(ctx context.Context, item *models.StrategyConfig) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"display_name",
			"controller_kind",
			"controller_category",
			"raw_config",
			"updated_at",
		}),
	}).Create(item).Error)
}

func (s *Store) GetStrategyConfig(ctx context.Context, userID, displayName string) (*models.StrategyConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.StrategyConfig
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND display_name = ?", userID, strings.TrimSpace(displayName)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategyConfigs(ctx context.Context, userID string) ([]models.StrategyConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.StrategyConfig
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("display_name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListStrategyConfigsByNames(ctx context.Context, userID string, displayNames []string) ([]models.StrategyConfig, error) {
	if s == nil || s.db == nil || len(displayNames) == 0 {
		return nil, nil
	}
	var items []models.StrategyConfig
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND display_name IN ?", userID, displayNames).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteStrategyConfig(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.StrategyConfig{}, id).Error
}

// --- Bot instances ----------------------------------------------------------

func (s *Store) InsertBotInstance(ctx context.Context, item *models.BotInstance) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetBotInstance(ctx context.Context, userID, displayName string) (*models.BotInstance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BotInstance
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND display_name = ?", userID, strings.TrimSpace(displayName)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBotInstances(ctx context.Context, userID string) ([]models.BotInstance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BotInstance
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAllBotInstances(ctx context.Context) ([]models.BotInstance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BotInstance
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateBotInstanceControllers(ctx context.Context, id uint64, active, stopped []string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.BotInstance{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active_controllers":  datatypes.NewJSONSlice(active),
			"stopped_controllers": datatypes.NewJSONSlice(stopped),
		}).Error
}

// --- Accounts ---------------------------------------------------------------

func (s *Store) InsertAccount(ctx context.Context, item *models.Account) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetAccount(ctx context.Context, userID, name string) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, strings.TrimSpace(name)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Account{}, id).Error
}

// --- Credentials ------------------------------------------------------------

func (s *Store) UpsertCredential(ctx context.Context, item *models.Credential) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "connector_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_name", "updated_at"}),
	}).Create(item).Error)
}

func (s *Store) GetCredential(ctx context.Context, accountID uint64, connectorName string) (*models.Credential, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return nil, nil
	}
	var item models.Credential
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND connector_name = ?", accountID, strings.TrimSpace(connectorName)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCredentials(ctx context.Context, accountID uint64) ([]models.Credential, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return nil, nil
	}
	var items []models.Credential
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("connector_name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteCredential(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Credential{}, id).Error
}

func (s *Store) DeleteCredentialsByAccount(ctx context.Context, accountID uint64) error {
	if s == nil || s.db == nil || accountID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.Credential{}).Error
}
