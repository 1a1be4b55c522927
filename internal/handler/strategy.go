package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"botdesk/internal/apperr"
	"botdesk/internal/auth"
	"botdesk/internal/service"
)

type StrategyHandler struct {
	Strategies *service.StrategyService
	Launcher   *service.LauncherService
	Status     *service.StatusService
	Logger     *zap.Logger
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	group := r.Group("/config")
	group.POST("/add-controller-config", h.addControllerConfig)
	group.GET("/get-user-strategy-filenames", h.getUserStrategyFileNames)
	group.GET("/get-user-strategies", h.getUserStrategies)
	group.POST("/delete-strategies", h.deleteStrategies)
	group.POST("/launch-bot", h.launchBot)
	group.GET("/get-user-bot-status", h.getUserBotStatus)
	group.POST("/stop-active-strategy-file", h.stopActiveStrategyFile)
}

// @Summary Add or update a strategy controller config
// @Tags config
// @Accept json
// @Param body body service.AddControllerConfigRequest true "strategy submission"
// @Success 200 {object} map[string]any
// @Router /config/add-controller-config [post]
func (h *StrategyHandler) addControllerConfig(c *gin.Context) {
	var req service.AddControllerConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	if err := h.Strategies.AddControllerConfig(c.Request.Context(), auth.UserID(c), req); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Strategy config saved successfully.", nil)
}

// @Summary List the user's strategy file names
// @Tags config
// @Success 200 {object} map[string]any
// @Router /config/get-user-strategy-filenames [get]
func (h *StrategyHandler) getUserStrategyFileNames(c *gin.Context) {
	names, err := h.Strategies.FileNames(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"strategyFileNames": names})
}

// @Summary List the user's strategies with derived display fields
// @Tags config
// @Success 200 {object} map[string]any
// @Router /config/get-user-strategies [get]
func (h *StrategyHandler) getUserStrategies(c *gin.Context) {
	strategies, err := h.Strategies.UserStrategies(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"strategies": strategies})
}

type deleteStrategiesRequest struct {
	StrategyFileNames []string `json:"strategyFileNames"`
}

// @Summary Delete strategies remotely and locally
// @Tags config
// @Accept json
// @Param body body deleteStrategiesRequest true "strategy file names"
// @Success 200 {object} map[string]any
// @Router /config/delete-strategies [post]
func (h *StrategyHandler) deleteStrategies(c *gin.Context) {
	var req deleteStrategiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	deleted, err := h.Strategies.DeleteStrategies(c.Request.Context(), auth.UserID(c), req.StrategyFileNames)
	if err != nil {
		// Partial progress still matters to the client.
		c.JSON(apperr.StatusOf(err), gin.H{"success": false, "message": apperr.MessageOf(err), "deleted": deleted})
		return
	}
	respondOK(c, "Strategies deleted successfully.", gin.H{"deleted": deleted})
}

// @Summary Launch a bot instance from stored strategies
// @Tags config
// @Accept json
// @Param body body service.LaunchRequest true "launch request"
// @Success 200 {object} map[string]any
// @Router /config/launch-bot [post]
func (h *StrategyHandler) launchBot(c *gin.Context) {
	var req service.LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	botName, err := h.Launcher.Launch(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Bot launched successfully.", gin.H{"botName": botName})
}

// @Summary Live status of all the user's bots
// @Tags config
// @Success 200 {object} map[string]any
// @Router /config/get-user-bot-status [get]
func (h *StrategyHandler) getUserBotStatus(c *gin.Context) {
	views, err := h.Status.UserBotStatus(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"data": views})
}

type stopStrategyRequest struct {
	BotName  string `json:"botName"`
	FileName string `json:"fileName"`
}

// @Summary Stop one strategy on a running bot
// @Tags config
// @Accept json
// @Param body body stopStrategyRequest true "bot and strategy names"
// @Success 200 {object} map[string]any
// @Router /config/stop-active-strategy-file [post]
func (h *StrategyHandler) stopActiveStrategyFile(c *gin.Context) {
	var req stopStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	if err := h.Launcher.StopController(c.Request.Context(), auth.UserID(c), req.BotName, req.FileName); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Strategy stopped successfully.", nil)
}
