package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type accountAdministrator interface {
	Register(ctx context.Context, actorID string, req models.RegisterAccountRequest) (*models.Account, error)
	Get(ctx context.Context, id string) (*models.Account, error)
	Unlock(ctx context.Context, actorID, accountID string) (models.Outcome, error)
	Deactivate(ctx context.Context, actorID, accountID string) error
}

// AccountHandler exposes account administration.
type AccountHandler struct {
	accounts accountAdministrator
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts accountAdministrator) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register godoc
// @Summary Create account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body models.RegisterAccountRequest true "Account payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req models.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid account payload"))
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// Get godoc
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Unlock godoc
// @Summary Unlock account
// @Description Reset the failure counter and reactivate a locked account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /accounts/{id}/unlock [post]
func (h *AccountHandler) Unlock(c *gin.Context) {
	outcome, err := h.accounts.Unlock(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusOK, outcome, nil)
}

// Deactivate godoc
// @Summary Deactivate account
// @Tags Accounts
// @Param id path string true "Account ID"
// @Success 204
// @Router /accounts/{id}/deactivate [post]
func (h *AccountHandler) Deactivate(c *gin.Context) {
	if err := h.accounts.Deactivate(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.AccountID
	}
	return ""
}
