package routes

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/qr"
)

type qrDataRequest struct {
	Data string `json:"data"`
	Type string `json:"type"`
}

type qrGrantRequest struct {
	Code string `json:"code"`
}

type qrGenerateResponse struct {
	Data      string     `json:"data"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	PNG       string     `json:"png"` // base64
}

func (h *Handlers) QRRoutes(r *gin.RouterGroup) {
	r.GET("/activity", RequirePermission(access.PermQRRead), listHandler(h.QRLog))
	r.POST("/activity", RequirePermission(access.PermQRWrite), appendHandler(h.QRLog, true))
	r.POST("/process", RequirePermission(access.PermQRWrite), h.processQR)
	r.POST("/grant", RequirePermission(access.PermQRGrant), h.grantQR)
	r.POST("/deny", RequirePermission(access.PermQRWrite), h.denyQR)
	r.POST("/generate", RequirePermission(access.PermQRGenerate), h.generateQR)
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return false
	}
	return true
}

func (h *Handlers) processQR(c *gin.Context) {
	var req qrDataRequest
	if !bindOptional(c, &req) {
		return
	}
	if req.Data == "" {
		AbortWithError(c, qr.ErrEmptyPayload)
		return
	}

	result := qr.Classify(req.Data)
	if _, err := h.record(c, h.QRLog, activity.Entry{
		Action:   activity.ActionQRProcessed,
		Type:     activity.TypeInfo,
		Data:     req.Data,
		Metadata: map[string]any{"kind": string(result.Type), "valid": result.Valid},
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) grantQR(c *gin.Context) {
	var req qrGrantRequest
	if !bindOptional(c, &req) {
		return
	}

	meta := map[string]any{"via": "qr"}
	if req.Code != "" {
		token, ok := qr.AccessToken(req.Code)
		if !ok {
			AbortWithError(c, ErrInvalidQRCode)
			return
		}
		claims, err := h.Signer.RedeemAccessCode(c.Request.Context(), token, h.Locker.ID())
		if err != nil {
			if GetErrorStatus(err) < http.StatusInternalServerError {
				h.logDenied(c, err.Error())
			}
			AbortWithError(c, err)
			return
		}
		meta["access_code"] = claims.ID
	}

	resp, ok := h.command(c, locker.ActionOpen, activity.ActionQRGranted, activity.TypeUserAction, meta)
	if !ok {
		return
	}
	if _, err := h.record(c, h.QRLog, activity.Entry{
		Action:   activity.ActionQRGranted,
		Type:     activity.TypeInfo,
		Metadata: meta,
	}); err != nil {
		slog.Warn("Failed to record QR grant", "error", err)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) denyQR(c *gin.Context) {
	var req qrDataRequest
	if !bindOptional(c, &req) {
		return
	}
	entry, err := h.record(c, h.QRLog, activity.Entry{
		Action: activity.ActionQRDenied,
		Type:   activity.TypeSecurity,
		Data:   req.Data,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activity": entry})
}

// logDenied records a rejected access code in the QR log.
func (h *Handlers) logDenied(c *gin.Context, reason string) {
	if _, err := h.record(c, h.QRLog, activity.Entry{
		Action:   activity.ActionQRDenied,
		Type:     activity.TypeSecurity,
		Metadata: map[string]any{"reason": reason},
	}); err != nil {
		slog.Warn("Failed to record denied QR access", "error", err)
	}
}

// generateQR renders data as a PNG. Without data a one-time access code is minted.
// Clients sending Accept: application/json get the payload and a base64 image.
func (h *Handlers) generateQR(c *gin.Context) {
	var req qrDataRequest
	if !bindOptional(c, &req) {
		return
	}

	data := req.Data
	var expiresAt *time.Time
	if data == "" {
		token, expiry, err := h.Signer.IssueAccessCode(c.Request.Context(), h.Locker.ID())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		data = qr.AccessCode(token)
		expiresAt = &expiry
	}

	png, err := qr.Encode(data, h.QRImageSize)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	kind := req.Type
	if kind == "" {
		kind = string(qr.Classify(data).Type)
	}
	if _, err := h.record(c, h.QRLog, activity.QRGenerated("", data, kind, expiresAt)); err != nil {
		AbortWithError(c, err)
		return
	}

	if c.GetHeader("Accept") == "application/json" {
		c.JSON(http.StatusOK, qrGenerateResponse{
			Data:      data,
			ExpiresAt: expiresAt,
			PNG:       base64.StdEncoding.EncodeToString(png),
		})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
