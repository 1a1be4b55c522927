package hummingbot

import "encoding/json"

// ScriptConfigContent is the orchestrator's deployment descriptor. Only one
// script config may exist on a deployment at a time; callers clear any
// previous one before uploading.
type ScriptConfigContent struct {
	ScriptFileName        string         `json:"script_file_name"`
	ControllersConfig     []string       `json:"controllers_config"`
	Markets               map[string]any `json:"markets"`
	CandlesConfig         []any          `json:"candles_config"`
	TimeToCashOut         *float64       `json:"time_to_cash_out"`
	MaxGlobalDrawdown     *float64       `json:"max_global_drawdown,omitempty"`
	MaxControllerDrawdown *float64       `json:"max_controller_drawdown,omitempty"`
	RebalanceInterval     *float64       `json:"rebalance_interval,omitempty"`
	AssetToRebalance      string         `json:"asset_to_rebalance,omitempty"`
}

type ScriptConfig struct {
	Name    string              `json:"name"`
	Content ScriptConfigContent `json:"content"`
}

type ControllerConfig struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}

type CreateInstanceRequest struct {
	InstanceName       string `json:"instance_name"`
	Script             string `json:"script"`
	ScriptConfig       string `json:"script_config"`
	Image              string `json:"image"`
	CredentialsProfile string `json:"credentials_profile"`
}

// ControllerPerformance is the per-controller numbers block of a bot status
// response. Field availability depends on the controller's own status.
type ControllerPerformance struct {
	RealizedPnlQuote   float64        `json:"realized_pnl_quote"`
	UnrealizedPnlQuote float64        `json:"unrealized_pnl_quote"`
	GlobalPnlQuote     float64        `json:"global_pnl_quote"`
	VolumeTraded       float64        `json:"volume_traded"`
	OpenOrderVolume    float64        `json:"open_order_volume"`
	InventoryImbalance float64        `json:"inventory_imbalance"`
	CloseTypeCounts    map[string]int `json:"close_type_counts"`
}

type ControllerStatus struct {
	Status      string                `json:"status"`
	Error       string                `json:"error,omitempty"`
	Performance ControllerPerformance `json:"performance"`
}

// BotStatus is the payload under "data" in a get-bot-status response,
// keyed by controller external name.
type BotStatus struct {
	Status      string                      `json:"status"`
	Performance map[string]ControllerStatus `json:"performance"`
	ErrorLogs   []json.RawMessage           `json:"error_logs"`
	GeneralLogs []json.RawMessage           `json:"general_logs"`
}

type botStatusEnvelope struct {
	Data BotStatus `json:"data"`
}
