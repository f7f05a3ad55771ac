package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brazaops/stockcast/internal/pipeline"
	"github.com/brazaops/stockcast/internal/repository"
	"github.com/brazaops/stockcast/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

func skuParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("sku"))
}

func (h *ForecastHandler) GetHistory(c *gin.Context) {
	skuCode := skuParam(c)
	account := strings.TrimSpace(c.Query("account"))

	rows, err := h.service.GetHistory(c.Request.Context(), skuCode, account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": skuCode, "account": account, "history": rows})
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	skuCode := skuParam(c)
	account := strings.TrimSpace(c.Query("account"))

	rows, err := h.service.GetForecast(c.Request.Context(), skuCode, account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch forecast", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": skuCode, "account": account, "forecast": rows})
}

func (h *ForecastHandler) GetProjection(c *gin.Context) {
	skuCode := skuParam(c)

	points, err := h.service.GetProjection(c.Request.Context(), skuCode)
	if err != nil {
		if errors.Is(err, repository.ErrNoStockReading) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no stock reading for sku", "sku": skuCode})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute projection", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": skuCode, "projection": points})
}

// RunForecastSKU refits and stores the forecast for one SKU, optionally
// narrowed to a single account via ?account=.
func (h *ForecastHandler) RunForecastSKU(c *gin.Context) {
	skuCode := skuParam(c)
	account := strings.TrimSpace(c.Query("account"))

	result, err := h.service.ForecastSKU(c.Request.Context(), skuCode, account)
	if err != nil {
		if errors.Is(err, pipeline.ErrInsufficientHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sales history for sku", "sku": skuCode})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run forecast", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sku":       result.SKU,
		"groups":    result.Groups,
		"predicted": len(result.Predicted),
	})
}

// RunForecasts refreshes the forecast for every known (sku, account) pair.
func (h *ForecastHandler) RunForecasts(c *gin.Context) {
	summary, err := h.service.RunForecasts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "forecast run failed", "details": err.Error()})
		return
	}

	failed := summary.Failed()
	failures := make([]gin.H, 0, len(failed))
	for _, f := range failed {
		failures = append(failures, gin.H{
			"sku":     f.Key.SKU,
			"account": f.Key.Account,
			"error":   f.Err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":        len(summary.Results),
		"failed":      len(failed),
		"failures":    failures,
		"duration_ms": summary.Duration.Milliseconds(),
	})
}
