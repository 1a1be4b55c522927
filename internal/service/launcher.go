package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"botdesk/internal/apperr"
	"botdesk/internal/client/hummingbot"
	"botdesk/internal/models"
	"botdesk/internal/repository"
)

// Launch step names, recorded in logs so a failed launch can be traced to
// the exact point the sequence stopped.
const (
	stepValidating       = "validating"
	stepResolvingRefs    = "resolving_references"
	stepClearingScripts  = "clearing_remote_scripts"
	stepUploadingScript  = "uploading_script_config"
	stepCreatingInstance = "creating_remote_instance"
	stepPersistingRecord = "persisting_local_record"
)

// LauncherService drives the multi-step bot launch sequence against the
// orchestrator. Steps run strictly in order and the sequence stops at the
// first failure. Remote steps that already completed are never rolled back;
// the failing step is logged so an operator can reconcile by hand.
type LauncherService struct {
	Repo         repository.Repository
	Orchestrator Orchestrator
	Logger       *zap.Logger

	// ScriptFile and Image are pinned per deployment, not per request.
	ScriptFile string
	Image      string

	// Now is swappable in tests; nil means time.Now.
	Now func() time.Time
}

type LaunchRequest struct {
	BotName           string   `json:"botName"`
	Credentials       string   `json:"credentials"`
	ControllerConfigs []string `json:"controllerConfigs"`

	GlobalDrawdown     *float64 `json:"globalDrawdown"`
	ControllerDrawdown *float64 `json:"controllerDrawdown"`
	RebalanceInterval  *float64 `json:"rebalanceInterval"`
	AssetToRebalance   string   `json:"assetToRebalance"`
}

func (s *LauncherService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Launch runs the full sequence: validate, resolve the account and strategy
// records, clear any previous script config on the orchestrator, upload the
// new one, create the remote instance, then persist the local record. The
// orchestrator holds at most one script config per deployment, which forces
// the clear-then-upload ordering.
func (s *LauncherService) Launch(ctx context.Context, userID string, req LaunchRequest) (string, error) {
	// Validating.
	botName := strings.TrimSpace(req.BotName)
	if botName == "" || strings.TrimSpace(req.Credentials) == "" || len(req.ControllerConfigs) == 0 {
		return "", apperr.Validationf("missing botName, credentials or controllerConfigs in request body")
	}
	if req.RebalanceInterval != nil && !strings.Contains(req.AssetToRebalance, "USD") {
		return "", apperr.Validationf("asset to rebalance must be USD-based")
	}
	existing, err := s.Repo.GetBotInstance(ctx, userID, botName)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", apperr.Conflictf("bot with name %q already exists for this user", botName)
	}

	// ResolvingReferences. Every lookup happens before the first remote
	// call, so a missing reference never leaves a partial remote mutation.
	account, err := s.Repo.GetAccount(ctx, userID, req.Credentials)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", apperr.NotFoundf("account %q not found", req.Credentials)
	}
	controllerFiles := make([]string, 0, len(req.ControllerConfigs))
	for _, displayName := range req.ControllerConfigs {
		strategy, err := s.Repo.GetStrategyConfig(ctx, userID, displayName)
		if err != nil {
			return "", err
		}
		if strategy == nil {
			return "", apperr.NotFoundf("strategy config %q not found for user", displayName)
		}
		controllerFiles = append(controllerFiles, strategy.ExternalName+".yml")
	}

	timestamp := s.now().UTC().Format("20060102T150405")
	instanceName := botName + "-" + userID + "-" + timestamp
	uniqueName := "hummingbot-" + instanceName

	scriptConfig := hummingbot.ScriptConfig{
		Name: instanceName,
		Content: hummingbot.ScriptConfigContent{
			ScriptFileName:        s.ScriptFile,
			ControllersConfig:     controllerFiles,
			Markets:               map[string]any{},
			CandlesConfig:         []any{},
			TimeToCashOut:         nil,
			MaxGlobalDrawdown:     req.GlobalDrawdown,
			MaxControllerDrawdown: req.ControllerDrawdown,
		},
	}
	if req.RebalanceInterval != nil {
		scriptConfig.Content.RebalanceInterval = req.RebalanceInterval
		scriptConfig.Content.AssetToRebalance = req.AssetToRebalance
	}

	// ClearingRemoteScripts.
	if err := s.Orchestrator.DeleteAllScriptConfigs(ctx); err != nil {
		s.logStepFailure(stepClearingScripts, botName, userID, err)
		return "", asUpstream(err, "failed to delete script configs")
	}

	// UploadingScriptConfig. The clear above is not undone on failure.
	if err := s.Orchestrator.AddScriptConfig(ctx, scriptConfig); err != nil {
		s.logStepFailure(stepUploadingScript, botName, userID, err)
		if upstreamNotFound(err) {
			return "", asUpstream(err, "strategy file not found")
		}
		return "", asUpstream(err, "failed to add script config")
	}

	// CreatingRemoteInstance. The uploaded script config stays orphaned
	// remotely if this fails.
	deploy := hummingbot.CreateInstanceRequest{
		InstanceName:       instanceName,
		Script:             s.ScriptFile,
		ScriptConfig:       instanceName + ".yml",
		Image:              s.Image,
		CredentialsProfile: account.ExternalName,
	}
	if err := s.Orchestrator.CreateInstance(ctx, deploy); err != nil {
		s.logStepFailure(stepCreatingInstance, botName, userID, err)
		return "", asUpstream(err, "failed to launch bot instance")
	}

	// PersistingLocalRecord. A failure here leaves a live remote bot with
	// no local record, the one state an operator must fix by hand.
	record := &models.BotInstance{
		UserID:             userID,
		DisplayName:        botName,
		ExternalName:       uniqueName,
		ActiveControllers:  datatypes.NewJSONSlice(req.ControllerConfigs),
		StoppedControllers: datatypes.NewJSONSlice([]string{}),
	}
	if err := s.Repo.InsertBotInstance(ctx, record); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return "", err
		}
		s.Logger.Error("bot instance created remotely but local record write failed",
			zap.String("step", stepPersistingRecord),
			zap.String("bot", botName),
			zap.String("instance", uniqueName),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return "", apperr.Persistencef("bot instance %q is running but could not be recorded, manual reconciliation required", instanceName)
	}

	s.Logger.Info("bot launched",
		zap.String("bot", botName),
		zap.String("instance", uniqueName),
		zap.String("user_id", userID),
		zap.Strings("controllers", req.ControllerConfigs),
	)
	return botName, nil
}

// StopController halts one strategy on a running bot via the orchestrator's
// kill switch, then moves its name from the active list to the stopped list.
// Local state changes only after the remote call succeeds.
func (s *LauncherService) StopController(ctx context.Context, userID, botName, fileName string) error {
	if strings.TrimSpace(botName) == "" || strings.TrimSpace(fileName) == "" {
		return apperr.Validationf("missing botName or fileName in request body")
	}
	bot, err := s.Repo.GetBotInstance(ctx, userID, botName)
	if err != nil {
		return err
	}
	if bot == nil {
		return apperr.NotFoundf("bot %q not found", botName)
	}
	idx := -1
	for i, name := range bot.ActiveControllers {
		if name == fileName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFoundf("strategy %q is not active on bot %q", fileName, botName)
	}
	strategy, err := s.Repo.GetStrategyConfig(ctx, userID, fileName)
	if err != nil {
		return err
	}
	if strategy == nil {
		return apperr.NotFoundf("strategy config %q not found for user", fileName)
	}

	patch := map[string]any{"manual_kill_switch": true}
	if err := s.Orchestrator.UpdateControllerConfig(ctx, bot.ExternalName, strategy.ExternalName, patch); err != nil {
		return asUpstream(err, "failed to stop strategy "+fileName)
	}

	active := make([]string, 0, len(bot.ActiveControllers)-1)
	active = append(active, bot.ActiveControllers[:idx]...)
	active = append(active, bot.ActiveControllers[idx+1:]...)
	stopped := append([]string(bot.StoppedControllers), fileName)
	if err := s.Repo.UpdateBotInstanceControllers(ctx, bot.ID, active, stopped); err != nil {
		s.Logger.Error("kill switch set remotely but local controller lists not updated",
			zap.String("bot", botName),
			zap.String("strategy", fileName),
			zap.Error(err),
		)
		return apperr.Persistencef("strategy %q stopped but local state could not be updated", fileName)
	}

	s.Logger.Info("strategy stopped",
		zap.String("bot", botName),
		zap.String("strategy", fileName),
		zap.String("user_id", userID),
	)
	return nil
}

func (s *LauncherService) logStepFailure(step, botName, userID string, err error) {
	s.Logger.Warn("bot launch aborted",
		zap.String("step", step),
		zap.String("bot", botName),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}
