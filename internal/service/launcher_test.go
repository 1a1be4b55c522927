package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gorm.io/datatypes"

	"botdesk/internal/apperr"
	"botdesk/internal/client/hummingbot"
	"botdesk/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func newLauncher(repo *stubRepo, orch *stubOrchestrator) *LauncherService {
	return &LauncherService{
		Repo:         repo,
		Orchestrator: orch,
		Logger:       testLogger(),
		ScriptFile:   "v2_with_controllers.py",
		Image:        "hummingbot/hummingbot:latest",
		Now:          fixedClock,
	}
}

func seedLaunchRepo() *stubRepo {
	return &stubRepo{
		accounts: []models.Account{
			{ID: 1, UserID: "u1", Name: "main", ExternalName: "main-u1"},
		},
		strategies: []models.StrategyConfig{
			{ID: 1, UserID: "u1", DisplayName: "mystrat_0.1", ExternalName: "u1_mystrat_0.1"},
		},
	}
}

func TestLaunch_HappyPath(t *testing.T) {
	repo := seedLaunchRepo()
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	botName, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if botName != "alpha" {
		t.Fatalf("botName = %q, want alpha", botName)
	}
	if orch.deleteAllCalls != 1 {
		t.Fatalf("deleteAllCalls = %d, want 1", orch.deleteAllCalls)
	}
	if len(orch.addedScripts) != 1 {
		t.Fatalf("addedScripts = %d, want 1", len(orch.addedScripts))
	}
	script := orch.addedScripts[0]
	if script.Name != "alpha-u1-20260314T093000" {
		t.Errorf("script name = %q", script.Name)
	}
	if len(script.Content.ControllersConfig) != 1 || script.Content.ControllersConfig[0] != "u1_mystrat_0.1.yml" {
		t.Errorf("controllers config = %v", script.Content.ControllersConfig)
	}
	if len(orch.createdInstances) != 1 {
		t.Fatalf("createdInstances = %d, want 1", len(orch.createdInstances))
	}
	deploy := orch.createdInstances[0]
	if deploy.CredentialsProfile != "main-u1" {
		t.Errorf("credentials profile = %q", deploy.CredentialsProfile)
	}
	if deploy.ScriptConfig != "alpha-u1-20260314T093000.yml" {
		t.Errorf("script config = %q", deploy.ScriptConfig)
	}
	if len(repo.insertedInstances) != 1 {
		t.Fatalf("inserted instances = %d, want 1", len(repo.insertedInstances))
	}
	record := repo.insertedInstances[0]
	if record.ExternalName != "hummingbot-alpha-u1-20260314T093000" {
		t.Errorf("instance external name = %q", record.ExternalName)
	}
	if len(record.ActiveControllers) != 1 || record.ActiveControllers[0] != "mystrat_0.1" {
		t.Errorf("active controllers = %v", record.ActiveControllers)
	}
	if len(record.StoppedControllers) != 0 {
		t.Errorf("stopped controllers = %v", record.StoppedControllers)
	}
}

func TestLaunch_DuplicateBotName(t *testing.T) {
	repo := seedLaunchRepo()
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	req := LaunchRequest{BotName: "alpha", Credentials: "main", ControllerConfigs: []string{"mystrat_0.1"}}
	if _, err := svc.Launch(context.Background(), "u1", req); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	_, err := svc.Launch(context.Background(), "u1", req)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second Launch kind = %v, want conflict", apperr.KindOf(err))
	}
	if len(orch.createdInstances) != 1 {
		t.Fatalf("createdInstances = %d, want 1 (no second remote create)", len(orch.createdInstances))
	}
}

func TestLaunch_MissingStrategyFailsBeforeRemoteCalls(t *testing.T) {
	repo := seedLaunchRepo()
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	_, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1", "ghost_1.0"},
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %v, want not found", apperr.KindOf(err))
	}
	if orch.deleteAllCalls != 0 || len(orch.addedScripts) != 0 || len(orch.createdInstances) != 0 {
		t.Fatal("remote calls made despite missing reference")
	}
}

func TestLaunch_MissingAccount(t *testing.T) {
	repo := seedLaunchRepo()
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	_, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "ghost",
		ControllerConfigs: []string{"mystrat_0.1"},
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %v, want not found", apperr.KindOf(err))
	}
	if orch.deleteAllCalls != 0 {
		t.Fatal("remote call made despite missing account")
	}
}

func TestLaunch_RebalanceAssetValidation(t *testing.T) {
	interval := 6.0

	repo := seedLaunchRepo()
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)
	_, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1"},
		RebalanceInterval: &interval,
		AssetToRebalance:  "EUR",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("EUR kind = %v, want validation", apperr.KindOf(err))
	}
	if orch.deleteAllCalls != 0 {
		t.Fatal("remote call made despite rebalance validation failure")
	}

	repo = seedLaunchRepo()
	orch = &stubOrchestrator{}
	svc = newLauncher(repo, orch)
	_, err = svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1"},
		RebalanceInterval: &interval,
		AssetToRebalance:  "USDT",
	})
	if err != nil {
		t.Fatalf("USDT Launch: %v", err)
	}
	content := orch.addedScripts[0].Content
	if content.RebalanceInterval == nil || *content.RebalanceInterval != 6.0 {
		t.Errorf("rebalance interval = %v", content.RebalanceInterval)
	}
	if content.AssetToRebalance != "USDT" {
		t.Errorf("asset to rebalance = %q", content.AssetToRebalance)
	}
}

func TestLaunch_ScriptUploadFailureAbortsBeforeCreate(t *testing.T) {
	repo := seedLaunchRepo()
	orch := &stubOrchestrator{
		addScriptErr: &hummingbot.APIError{Status: http.StatusUnprocessableEntity, Detail: "bad script"},
	}
	svc := newLauncher(repo, orch)

	_, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1"},
	})
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("kind = %v, want upstream", apperr.KindOf(err))
	}
	if apperr.StatusOf(err) != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apperr.StatusOf(err))
	}
	if len(orch.createdInstances) != 0 {
		t.Fatal("instance created despite script upload failure")
	}
	if len(repo.insertedInstances) != 0 {
		t.Fatal("local record written despite upstream failure")
	}
}

func TestLaunch_PersistFailureAfterRemoteSuccess(t *testing.T) {
	repo := seedLaunchRepo()
	repo.insertInstanceErr = errors.New("connection reset")
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	_, err := svc.Launch(context.Background(), "u1", LaunchRequest{
		BotName:           "alpha",
		Credentials:       "main",
		ControllerConfigs: []string{"mystrat_0.1"},
	})
	if apperr.KindOf(err) != apperr.KindPersistence {
		t.Fatalf("kind = %v, want persistence", apperr.KindOf(err))
	}
	if len(orch.createdInstances) != 1 {
		t.Fatalf("createdInstances = %d, want 1", len(orch.createdInstances))
	}
}

func TestStopController_MovesActiveToStopped(t *testing.T) {
	repo := seedLaunchRepo()
	repo.instances = []models.BotInstance{{
		ID:                1,
		UserID:            "u1",
		DisplayName:       "b1",
		ExternalName:      "hummingbot-b1-u1-20260314T093000",
		ActiveControllers: datatypes.NewJSONSlice([]string{"mystrat_0.1"}),
	}}
	orch := &stubOrchestrator{}
	svc := newLauncher(repo, orch)

	if err := svc.StopController(context.Background(), "u1", "b1", "mystrat_0.1"); err != nil {
		t.Fatalf("StopController: %v", err)
	}
	if len(orch.updatedPatches) != 1 {
		t.Fatalf("updatedPatches = %d, want 1", len(orch.updatedPatches))
	}
	if v, ok := orch.updatedPatches[0]["manual_kill_switch"].(bool); !ok || !v {
		t.Errorf("patch = %v, want manual_kill_switch true", orch.updatedPatches[0])
	}
	if len(repo.updatedActive) != 0 {
		t.Errorf("active = %v, want empty", repo.updatedActive)
	}
	if len(repo.updatedStopped) != 1 || repo.updatedStopped[0] != "mystrat_0.1" {
		t.Errorf("stopped = %v, want [mystrat_0.1]", repo.updatedStopped)
	}

	// A second stop of the same name is a not-found, not a silent success.
	err := svc.StopController(context.Background(), "u1", "b1", "mystrat_0.1")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second stop kind = %v, want not found", apperr.KindOf(err))
	}
	if len(orch.updatedPatches) != 1 {
		t.Fatal("remote patch issued for an already stopped controller")
	}
}

func TestStopController_RemoteFailureLeavesLocalState(t *testing.T) {
	repo := seedLaunchRepo()
	repo.instances = []models.BotInstance{{
		ID:                1,
		UserID:            "u1",
		DisplayName:       "b1",
		ExternalName:      "hummingbot-b1-u1-20260314T093000",
		ActiveControllers: datatypes.NewJSONSlice([]string{"mystrat_0.1"}),
	}}
	orch := &stubOrchestrator{
		updateControllerErr: &hummingbot.APIError{Status: http.StatusBadGateway, Detail: "bot unreachable"},
	}
	svc := newLauncher(repo, orch)

	err := svc.StopController(context.Background(), "u1", "b1", "mystrat_0.1")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("kind = %v, want upstream", apperr.KindOf(err))
	}
	bot, _ := repo.GetBotInstance(context.Background(), "u1", "b1")
	if len(bot.ActiveControllers) != 1 || len(bot.StoppedControllers) != 0 {
		t.Fatalf("local state mutated on remote failure: active=%v stopped=%v",
			bot.ActiveControllers, bot.StoppedControllers)
	}
}
