package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"botdesk/internal/cache"
	"botdesk/internal/models"
	"botdesk/internal/repository"
	"botdesk/internal/transform"
)

// StatusService joins locally tracked bot instances against live status from
// the orchestrator. One status call per bot, dispatched concurrently; a
// failure for one bot degrades that bot's entry and never blocks the rest.
type StatusService struct {
	Repo         repository.Repository
	Orchestrator Orchestrator
	Cache        *cache.Store
	Logger       *zap.Logger

	// SnapshotTTL bounds how stale a cached status view may be.
	SnapshotTTL time.Duration
}

type ControllerView struct {
	Name            string  `json:"name"`
	Controller      string  `json:"controller"`
	Connector       string  `json:"connector"`
	TradingPair     string  `json:"trading_pair"`
	RealizedPnl     float64 `json:"realized_pnl"`
	UnrealizedPnl   float64 `json:"unrealized_pnl"`
	NetPnl          float64 `json:"net_pnl"`
	VolumeTraded    float64 `json:"volume_traded"`
	OpenOrderVolume float64 `json:"open_order_volume"`
	Imbalance       float64 `json:"imbalance"`
}

type BotStatusView struct {
	BotName               string            `json:"botName"`
	Status                string            `json:"status"`
	ActiveControllers     []ControllerView  `json:"activeControllers"`
	StoppedControllers    []ControllerView  `json:"stoppedControllers"`
	TotalNetPNL           float64           `json:"totalNetPNL"`
	TotalNetPNLPercentage float64           `json:"totalNetPNLPercentage"`
	TotalVolumeTraded     float64           `json:"totalVolumeTraded"`
	TotalOpenOrderVolume  float64           `json:"totalOpenOrderVolume"`
	TotalImbalance        float64           `json:"totalImbalance"`
	TotalUnrealizedPNL    float64           `json:"totalUnrealizedPNL"`
	ErrorLogs             []json.RawMessage `json:"errorLogs"`
	GeneralLogs           []json.RawMessage `json:"generalLogs"`
	Error                 string            `json:"error,omitempty"`
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func statusCacheKey(userID string) string {
	return "botdesk:status:" + userID
}

// UserBotStatus reconciles every bot the user owns. A recent cached snapshot
// is returned as-is when present.
func (s *StatusService) UserBotStatus(ctx context.Context, userID string) ([]BotStatusView, error) {
	if b, ok, err := s.Cache.Get(ctx, statusCacheKey(userID)); err != nil {
		s.Logger.Warn("status cache read failed", zap.Error(err))
	} else if ok {
		var views []BotStatusView
		if err := json.Unmarshal(b, &views); err == nil {
			return views, nil
		}
	}

	bots, err := s.Repo.ListBotInstances(ctx, userID)
	if err != nil {
		return nil, err
	}
	strategies, err := s.Repo.ListStrategyConfigs(ctx, userID)
	if err != nil {
		return nil, err
	}
	byExternalName := make(map[string]models.StrategyConfig, len(strategies))
	for _, st := range strategies {
		byExternalName[st.ExternalName] = st
	}

	views := make([]BotStatusView, len(bots))
	var wg sync.WaitGroup
	for i := range bots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			views[i] = s.reconcile(ctx, &bots[i], byExternalName)
		}(i)
	}
	wg.Wait()

	if b, err := json.Marshal(views); err == nil {
		if err := s.Cache.Set(ctx, statusCacheKey(userID), b, s.SnapshotTTL); err != nil {
			s.Logger.Warn("status cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

func (s *StatusService) reconcile(ctx context.Context, bot *models.BotInstance, byExternalName map[string]models.StrategyConfig) BotStatusView {
	view := BotStatusView{
		BotName:            bot.DisplayName,
		ActiveControllers:  []ControllerView{},
		StoppedControllers: []ControllerView{},
		ErrorLogs:          []json.RawMessage{},
		GeneralLogs:        []json.RawMessage{},
	}

	status, err := s.Orchestrator.GetBotStatus(ctx, bot.ExternalName)
	if err != nil {
		if upstreamNotFound(err) {
			view.Status = "Stopped"
		} else {
			view.Status = "Error"
		}
		upstreamErr := asUpstream(err, "failed to fetch bot status")
		view.Error = upstreamErr.Error()
		s.Logger.Warn("bot status fetch failed",
			zap.String("bot", bot.DisplayName),
			zap.String("instance", bot.ExternalName),
			zap.Error(err),
		)
		return view
	}
	view.Status = status.Status
	view.ErrorLogs = append(view.ErrorLogs, status.ErrorLogs...)
	view.GeneralLogs = append(view.GeneralLogs, status.GeneralLogs...)

	stopped := make(map[string]bool, len(bot.StoppedControllers))
	for _, name := range bot.StoppedControllers {
		stopped[name] = true
	}

	names := make([]string, 0, len(status.Performance))
	for name := range status.Performance {
		names = append(names, name)
	}
	sort.Strings(names)

	var totalNetPNL, totalVolume, totalOpenOrders, totalImbalance, totalUnrealized float64
	for _, externalName := range names {
		entry := status.Performance[externalName]
		if entry.Status == "error" {
			continue
		}
		perf := entry.Performance

		cv := ControllerView{
			Name:            externalName,
			Controller:      "N/A",
			Connector:       "N/A",
			TradingPair:     "N/A",
			RealizedPnl:     round2(perf.RealizedPnlQuote),
			UnrealizedPnl:   round2(perf.UnrealizedPnlQuote),
			NetPnl:          round2(perf.GlobalPnlQuote),
			VolumeTraded:    round2(perf.VolumeTraded),
			OpenOrderVolume: round2(perf.OpenOrderVolume),
			Imbalance:       round2(perf.InventoryImbalance),
		}

		// Upstream and local state can drift; missing local matches keep
		// the placeholder metadata instead of being dropped.
		displayName := externalName
		if st, ok := byExternalName[externalName]; ok {
			displayName = st.DisplayName
			cv.Name = st.DisplayName
			cv.Controller = st.ControllerKind
			var cfg transform.Config
			if err := json.Unmarshal(st.RawConfig, &cfg); err == nil {
				cv.Connector = cfg.ConnectorName
				cv.TradingPair = cfg.TradingPair
			}
		}

		// The local stop list, not the upstream status, decides where a
		// controller is shown.
		if stopped[displayName] {
			view.StoppedControllers = append(view.StoppedControllers, cv)
		} else {
			view.ActiveControllers = append(view.ActiveControllers, cv)
		}

		totalNetPNL += perf.GlobalPnlQuote
		totalVolume += perf.VolumeTraded
		totalOpenOrders += perf.OpenOrderVolume
		totalImbalance += perf.InventoryImbalance
		totalUnrealized += perf.UnrealizedPnlQuote
	}

	view.TotalNetPNL = round2(totalNetPNL)
	view.TotalVolumeTraded = round2(totalVolume)
	view.TotalOpenOrderVolume = round2(totalOpenOrders)
	view.TotalImbalance = round2(totalImbalance)
	view.TotalUnrealizedPNL = round2(totalUnrealized)
	if totalVolume != 0 {
		view.TotalNetPNLPercentage = round2(totalNetPNL / totalVolume * 100)
	}
	return view
}

// Watchdog sweeps every tracked instance and logs the ones the orchestrator
// no longer reports or reports unhealthy. Meant to run on a cron schedule.
func (s *StatusService) Watchdog(ctx context.Context) {
	bots, err := s.Repo.ListAllBotInstances(ctx)
	if err != nil {
		s.Logger.Error("status watchdog could not list instances", zap.Error(err))
		return
	}
	for i := range bots {
		bot := &bots[i]
		status, err := s.Orchestrator.GetBotStatus(ctx, bot.ExternalName)
		if err != nil {
			if upstreamNotFound(err) {
				s.Logger.Warn("tracked instance missing upstream",
					zap.String("bot", bot.DisplayName),
					zap.String("instance", bot.ExternalName),
					zap.String("user_id", bot.UserID),
				)
			} else {
				s.Logger.Warn("status watchdog fetch failed",
					zap.String("instance", bot.ExternalName),
					zap.Error(err),
				)
			}
			continue
		}
		if status.Status != "running" {
			s.Logger.Info("instance not running",
				zap.String("bot", bot.DisplayName),
				zap.String("instance", bot.ExternalName),
				zap.String("status", status.Status),
			)
		}
	}
}
