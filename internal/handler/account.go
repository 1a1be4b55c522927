package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"botdesk/internal/auth"
	"botdesk/internal/service"
)

type AccountHandler struct {
	Accounts *service.AccountService
	Logger   *zap.Logger
}

func (h *AccountHandler) Register(r *gin.Engine) {
	group := r.Group("/account")
	group.POST("/add-account/:accountName", h.addAccount)
	group.POST("/delete-account/:accountName", h.deleteAccount)
	group.POST("/add-credentials/:accountName/:connectorName", h.addCredentials)
	group.POST("/delete-credentials/:accountName/:connectorName", h.deleteCredentials)
	group.GET("/list-accounts", h.listAccounts)
	group.GET("/list-credentials/:accountName", h.listCredentials)
	group.GET("/available-connectors", h.availableConnectors)
	group.GET("/connectors-config-map", h.connectorsConfigMap)
	group.GET("/summary", h.summary)
}

// @Summary Create a credential account
// @Tags account
// @Param accountName path string true "account name"
// @Success 200 {object} map[string]any
// @Router /account/add-account/{accountName} [post]
func (h *AccountHandler) addAccount(c *gin.Context) {
	if err := h.Accounts.CreateAccount(c.Request.Context(), auth.UserID(c), c.Param("accountName")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Account created successfully.", nil)
}

// @Summary Delete a credential account and its connector keys
// @Tags account
// @Param accountName path string true "account name"
// @Success 200 {object} map[string]any
// @Router /account/delete-account/{accountName} [post]
func (h *AccountHandler) deleteAccount(c *gin.Context) {
	if err := h.Accounts.DeleteAccount(c.Request.Context(), auth.UserID(c), c.Param("accountName")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Account and associated credentials deleted successfully.", nil)
}

// @Summary Add connector keys to an account
// @Tags account
// @Accept json
// @Param accountName path string true "account name"
// @Param connectorName path string true "connector name"
// @Success 200 {object} map[string]any
// @Router /account/add-credentials/{accountName}/{connectorName} [post]
func (h *AccountHandler) addCredentials(c *gin.Context) {
	// Connector key shapes differ per exchange; the body passes through to
	// the orchestrator untouched.
	keys, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil || !json.Valid(keys) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	if err := h.Accounts.AddCredentials(c.Request.Context(), auth.UserID(c), c.Param("accountName"), c.Param("connectorName"), keys); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Credentials added successfully.", nil)
}

// @Summary Delete connector keys from an account
// @Tags account
// @Param accountName path string true "account name"
// @Param connectorName path string true "connector name"
// @Success 200 {object} map[string]any
// @Router /account/delete-credentials/{accountName}/{connectorName} [post]
func (h *AccountHandler) deleteCredentials(c *gin.Context) {
	if err := h.Accounts.DeleteCredentials(c.Request.Context(), auth.UserID(c), c.Param("accountName"), c.Param("connectorName")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Credentials deleted successfully.", nil)
}

// @Summary List the user's account names
// @Tags account
// @Success 200 {object} map[string]any
// @Router /account/list-accounts [get]
func (h *AccountHandler) listAccounts(c *gin.Context) {
	accounts, err := h.Accounts.UserAccounts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"accounts": accounts})
}

// @Summary List the connectors an account holds keys for
// @Tags account
// @Param accountName path string true "account name"
// @Success 200 {object} map[string]any
// @Router /account/list-credentials/{accountName} [get]
func (h *AccountHandler) listCredentials(c *gin.Context) {
	connectors, err := h.Accounts.AccountCredentials(c.Request.Context(), auth.UserID(c), c.Param("accountName"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"credentials": connectors})
}

// @Summary Connector catalog from the orchestrator
// @Tags account
// @Success 200 {object} map[string]any
// @Router /account/available-connectors [get]
func (h *AccountHandler) availableConnectors(c *gin.Context) {
	raw, err := h.Accounts.AvailableConnectors(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"connectors": raw})
}

// @Summary Per-connector credential field map
// @Tags account
// @Success 200 {object} map[string]any
// @Router /account/connectors-config-map [get]
func (h *AccountHandler) connectorsConfigMap(c *gin.Context) {
	raw, err := h.Accounts.ConnectorConfigMap(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"configMap": raw})
}

// @Summary Account names mapped to their connector lists
// @Tags account
// @Success 200 {object} map[string]any
// @Router /account/summary [get]
func (h *AccountHandler) summary(c *gin.Context) {
	summary, err := h.Accounts.Summary(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "", gin.H{"summary": summary})
}
