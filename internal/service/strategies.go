package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"botdesk/internal/apperr"
	"botdesk/internal/models"
	"botdesk/internal/repository"
	"botdesk/internal/transform"
)

// StrategyService owns the strategy-config CRUD flow: transform the
// submission, push the normalized payload to the orchestrator, then persist
// the raw record locally. Deletion runs remote-first so a locally deleted
// strategy can never linger on the orchestrator.
type StrategyService struct {
	Repo         repository.Repository
	Orchestrator Orchestrator
	Logger       *zap.Logger
}

type AddControllerConfigRequest struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Content json.RawMessage `json:"content"`
}

func (s *StrategyService) AddControllerConfig(ctx context.Context, userID string, req AddControllerConfigRequest) error {
	name := strings.TrimSpace(req.Name)
	version := strings.TrimSpace(req.Version)
	if name == "" || version == "" || len(req.Content) == 0 {
		return apperr.Validationf("missing name, version or content in request body")
	}

	displayName := strings.ToLower(name) + "_" + version
	externalName := userID + "_" + displayName

	params, err := transform.ParseParams(req.Content)
	if err != nil {
		return err
	}
	stored, payload, err := transform.Build(externalName, params)
	if err != nil {
		return err
	}

	if err := s.Orchestrator.UpsertControllerConfig(ctx, externalName, payload); err != nil {
		return asUpstream(err, "failed to add controller config")
	}

	rawConfig, err := json.Marshal(stored)
	if err != nil {
		return apperr.Persistencef("failed to encode strategy config: %v", err)
	}
	record := &models.StrategyConfig{
		UserID:             userID,
		DisplayName:        displayName,
		ExternalName:       externalName,
		ControllerKind:     stored.ControllerName,
		ControllerCategory: stored.ControllerType,
		RawConfig:          rawConfig,
	}
	if err := s.Repo.UpsertStrategyConfig(ctx, record); err != nil {
		// Remote config exists at this point; the local record does not.
		s.Logger.Error("strategy config saved remotely but local upsert failed",
			zap.String("external_name", externalName),
			zap.Error(err),
		)
		return apperr.Persistencef("controller config uploaded but could not be saved locally")
	}

	s.Logger.Info("controller config added",
		zap.String("user_id", userID),
		zap.String("strategy", displayName),
	)
	return nil
}

func (s *StrategyService) FileNames(ctx context.Context, userID string) ([]string, error) {
	items, err := s.Repo.ListStrategyConfigs(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.DisplayName)
	}
	return names, nil
}

// StrategyDetail is the display form of a stored strategy, echoing the
// authored values plus the derived worst-case loss.
type StrategyDetail struct {
	ControllerName      string                 `json:"controller_name"`
	ControllerType      string                 `json:"controller_type"`
	ConnectorName       string                 `json:"connector_name"`
	TradingPair         string                 `json:"trading_pair"`
	TotalAmountQuote    float64                `json:"total_amount_quote"`
	BuySpreads          []float64              `json:"buy_spreads"`
	SellSpreads         []float64              `json:"sell_spreads"`
	BuyAmountsPct       []float64              `json:"buy_amounts_pct"`
	SellAmountsPct      []float64              `json:"sell_amounts_pct"`
	ExecutorRefreshTime float64                `json:"executor_refresh_time"`
	CooldownTime        float64                `json:"cooldown_time"`
	StopLoss            float64                `json:"stop_loss"`
	TakeProfit          float64                `json:"take_profit"`
	TimeLimit           float64                `json:"time_limit"`
	TakeProfitOrderType int                    `json:"take_profit_order_type"`
	TrailingStop        transform.TrailingStop `json:"trailing_stop"`
	MaxLoss             float64                `json:"max_loss"`
}

func (s *StrategyService) UserStrategies(ctx context.Context, userID string) (map[string]StrategyDetail, error) {
	items, err := s.Repo.ListStrategyConfigs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]StrategyDetail, len(items))
	for _, item := range items {
		var cfg transform.Config
		if err := json.Unmarshal(item.RawConfig, &cfg); err != nil {
			s.Logger.Warn("stored strategy config is unreadable",
				zap.String("strategy", item.DisplayName),
				zap.Error(err),
			)
			continue
		}
		out[item.DisplayName] = StrategyDetail{
			ControllerName:      cfg.ControllerName,
			ControllerType:      cfg.ControllerType,
			ConnectorName:       cfg.ConnectorName,
			TradingPair:         cfg.TradingPair,
			TotalAmountQuote:    cfg.TotalAmountQuote,
			BuySpreads:          cfg.BuySpreads,
			SellSpreads:         cfg.SellSpreads,
			BuyAmountsPct:       cfg.BuyAmountsPct,
			SellAmountsPct:      cfg.SellAmountsPct,
			ExecutorRefreshTime: cfg.ExecutorRefreshTime,
			CooldownTime:        cfg.CooldownTime,
			StopLoss:            cfg.StopLoss,
			TakeProfit:          cfg.TakeProfit,
			TimeLimit:           cfg.TimeLimit,
			TakeProfitOrderType: cfg.TakeProfitOrderType,
			TrailingStop:        cfg.TrailingStop,
			// Half the quote amount is deployed per side, so the worst case
			// loses stop_loss percent of that half.
			MaxLoss: cfg.TotalAmountQuote * (cfg.StopLoss / 100) / 2,
		}
	}
	return out, nil
}

// DeleteStrategies removes the named strategies remote-first, one at a time.
// The count of records deleted before a failure is always reported so the
// caller can see partial progress.
func (s *StrategyService) DeleteStrategies(ctx context.Context, userID string, fileNames []string) (int, error) {
	if len(fileNames) == 0 {
		return 0, apperr.Validationf("incorrect or missing strategyFileNames in request body")
	}
	items, err := s.Repo.ListStrategyConfigsByNames(ctx, userID, fileNames)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, apperr.NotFoundf("no matching strategy files found for the user")
	}

	deleted := 0
	for _, item := range items {
		if err := s.Orchestrator.DeleteControllerConfig(ctx, item.ExternalName); err != nil {
			return deleted, asUpstream(err, "failed to delete controller config "+item.DisplayName)
		}
		if err := s.Repo.DeleteStrategyConfig(ctx, item.ID); err != nil {
			return deleted, apperr.Persistencef("remote config %q deleted but local record removal failed", item.DisplayName)
		}
		deleted++
	}
	s.Logger.Info("strategies deleted",
		zap.String("user_id", userID),
		zap.Int("count", deleted),
	)
	return deleted, nil
}
