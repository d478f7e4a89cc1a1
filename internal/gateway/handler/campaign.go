package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/campaign"
	"github.com/doozitravel/gateway/internal/session"
	"github.com/doozitravel/gateway/pkg/validation"
)

// campaignSvc is the subset of *campaign.Service used by CampaignHandler.
type campaignSvc interface {
	Submit(ctx context.Context, token string, raw validation.Values) (*campaign.Result, error)
}

// CampaignHandler handles business campaign requests. Signing in is
// optional; a token, when present, is forwarded.
type CampaignHandler struct {
	svc     campaignSvc
	fetcher session.Fetcher
	logger  *zap.Logger
}

// NewCampaignHandler creates a CampaignHandler.
func NewCampaignHandler(svc campaignSvc, f session.Fetcher, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{svc: svc, fetcher: f, logger: logger}
}

// Register registers CampaignHandler routes on the given router group.
func (h *CampaignHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/business-campaigns", h.Submit)
	rg.POST("/business-campaigns/receipt", h.Receipt)
}

// Submit handles POST /business-campaigns. The backend's reply is passed
// through with the receipt added under "receipt".
func (h *CampaignHandler) Submit(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	token := requestSession(c, h.fetcher, h.logger).Token()

	res, err := h.svc.Submit(c.Request.Context(), token, raw)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{}
	for k, v := range res.Body {
		body[k] = v
	}
	body["receipt"] = res.Receipt
	status := res.Status
	if status < 200 || status >= 300 {
		status = http.StatusOK
	}
	c.JSON(status, body)
}

// Receipt handles POST /business-campaigns/receipt: it renders a receipt
// returned by Submit as a downloadable HTML page.
func (h *CampaignHandler) Receipt(c *gin.Context) {
	rc, err := campaign.DecodeReceipt(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receipt"})
		return
	}
	page, err := rc.HTML()
	if err != nil {
		h.logger.Error("render receipt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render receipt"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rc.Filename()))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
