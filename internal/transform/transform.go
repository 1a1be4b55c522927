package transform

import (
	"bytes"
	"encoding/json"
	"math"

	"botdesk/internal/apperr"
)

// Defaults applied underneath user-supplied fields. Leverage 1 and HEDGE
// position mode pin the config to spot trading; candles stay empty for the
// simple market-making controller.
const (
	ControllerName  = "pmm_simple"
	ControllerType  = "market_making"
	defaultLeverage = 1
	positionMode    = "HEDGE"
)

type TrailingStop struct {
	ActivationPrice float64 `json:"activation_price"`
	TrailingDelta   float64 `json:"trailing_delta"`
}

// Params is the user-authored parameter set: spreads and risk limits as
// percentages (0-100), time fields in minutes.
type Params struct {
	ConnectorName       string       `json:"connector_name"`
	TradingPair         string       `json:"trading_pair"`
	TotalAmountQuote    float64      `json:"total_amount_quote"`
	BuySpreads          []float64    `json:"buy_spreads"`
	SellSpreads         []float64    `json:"sell_spreads"`
	BuyAmountsPct       []float64    `json:"buy_amounts_pct"`
	SellAmountsPct      []float64    `json:"sell_amounts_pct"`
	ExecutorRefreshTime float64      `json:"executor_refresh_time"`
	CooldownTime        float64      `json:"cooldown_time"`
	StopLoss            float64      `json:"stop_loss"`
	TakeProfit          float64      `json:"take_profit"`
	TimeLimit           float64      `json:"time_limit"`
	TakeProfitOrderType int          `json:"take_profit_order_type"`
	TrailingStop        TrailingStop `json:"trailing_stop"`
}

// Config is the full controller configuration as the orchestrator understands
// it: Params plus the fixed defaults and the generated id.
type Config struct {
	ID               string `json:"id"`
	ControllerName   string `json:"controller_name"`
	ControllerType   string `json:"controller_type"`
	ManualKillSwitch bool   `json:"manual_kill_switch"`
	Leverage         int    `json:"leverage"`
	CandlesConfig    []any  `json:"candles_config"`
	PositionMode     string `json:"position_mode"`
	Params
}

// ParseParams decodes a raw submission, rejecting unknown fields so typos and
// stray keys never pass through to the orchestrator silently.
func ParseParams(raw []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p Params
	if err := dec.Decode(&p); err != nil {
		return Params{}, apperr.Validationf("invalid strategy content: %v", err)
	}
	return p, nil
}

// Build produces the stored (pre-normalization) and orchestrator (normalized)
// forms of a strategy config. It is pure: identical input always yields
// identical output, and the input is never mutated.
//
// The normalized form converts every percentage to a fraction, jointly
// renormalizes buy and sell allocation weights so the combined sequence sums
// to 1, and converts minute fields to seconds.
func Build(externalName string, p Params) (stored Config, payload Config, err error) {
	if err := validate(p); err != nil {
		return Config{}, Config{}, err
	}

	stored = Config{
		ID:               externalName,
		ControllerName:   ControllerName,
		ControllerType:   ControllerType,
		ManualKillSwitch: false,
		Leverage:         defaultLeverage,
		CandlesConfig:    []any{},
		PositionMode:     positionMode,
		Params:           clone(p),
	}

	payload = stored
	payload.Params = clone(p)
	payload.BuySpreads = scale(p.BuySpreads, 1.0/100)
	payload.SellSpreads = scale(p.SellSpreads, 1.0/100)
	payload.StopLoss = p.StopLoss / 100
	payload.TakeProfit = p.TakeProfit / 100
	payload.TrailingStop = TrailingStop{
		ActivationPrice: p.TrailingStop.ActivationPrice / 100,
		TrailingDelta:   p.TrailingStop.TrailingDelta / 100,
	}

	buy, sell := normalizeJoint(p.BuyAmountsPct, p.SellAmountsPct)
	payload.BuyAmountsPct = buy
	payload.SellAmountsPct = sell

	payload.ExecutorRefreshTime = p.ExecutorRefreshTime * 60
	payload.CooldownTime = p.CooldownTime * 60
	payload.TimeLimit = p.TimeLimit * 60

	return stored, payload, nil
}

func validate(p Params) error {
	if len(p.BuySpreads) == 0 {
		return apperr.Validationf("buy_spreads must not be empty")
	}
	if len(p.SellSpreads) == 0 {
		return apperr.Validationf("sell_spreads must not be empty")
	}
	if len(p.BuyAmountsPct) == 0 {
		return apperr.Validationf("buy_amounts_pct must not be empty")
	}
	if len(p.SellAmountsPct) == 0 {
		return apperr.Validationf("sell_amounts_pct must not be empty")
	}

	named := []struct {
		name   string
		values []float64
	}{
		{"buy_spreads", p.BuySpreads},
		{"sell_spreads", p.SellSpreads},
		{"buy_amounts_pct", p.BuyAmountsPct},
		{"sell_amounts_pct", p.SellAmountsPct},
		{"stop_loss", []float64{p.StopLoss}},
		{"take_profit", []float64{p.TakeProfit}},
		{"time_limit", []float64{p.TimeLimit}},
		{"executor_refresh_time", []float64{p.ExecutorRefreshTime}},
		{"cooldown_time", []float64{p.CooldownTime}},
		{"trailing_stop.activation_price", []float64{p.TrailingStop.ActivationPrice}},
		{"trailing_stop.trailing_delta", []float64{p.TrailingStop.TrailingDelta}},
	}
	for _, field := range named {
		for _, v := range field.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperr.Validationf("%s contains a non-finite value", field.name)
			}
		}
	}

	var sum float64
	for _, v := range p.BuyAmountsPct {
		sum += v
	}
	for _, v := range p.SellAmountsPct {
		sum += v
	}
	if sum == 0 {
		return apperr.Validationf("buy_amounts_pct and sell_amounts_pct sum to zero")
	}
	return nil
}

// normalizeJoint renormalizes buy and sell weights against their combined
// sum, so the concatenated sequence sums to 1 while both sub-sequences keep
// their original length and order. Normalizing each side independently would
// break the buy/sell allocation ratio the user expressed.
func normalizeJoint(buy, sell []float64) ([]float64, []float64) {
	var sum float64
	for _, v := range buy {
		sum += v
	}
	for _, v := range sell {
		sum += v
	}
	outBuy := scale(buy, 1/sum)
	outSell := scale(sell, 1/sum)
	return outBuy, outSell
}

func scale(in []float64, factor float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v * factor
	}
	return out
}

func clone(p Params) Params {
	out := p
	out.BuySpreads = append([]float64(nil), p.BuySpreads...)
	out.SellSpreads = append([]float64(nil), p.SellSpreads...)
	out.BuyAmountsPct = append([]float64(nil), p.BuyAmountsPct...)
	out.SellAmountsPct = append([]float64(nil), p.SellAmountsPct...)
	return out
}
