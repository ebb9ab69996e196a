// Package handlers implements the organization-facing quota endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/metrics"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
)

// QuotaHandler serves quota reads and the consume and release operations for
// the authenticated organization.
type QuotaHandler struct {
	guard *quota.Guard
}

// NewQuotaHandler constructs a QuotaHandler.
func NewQuotaHandler(guard *quota.Guard) *QuotaHandler {
	return &QuotaHandler{guard: guard}
}

// readOrgIDFromContext extracts the authenticated organization ID.
func readOrgIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("orgID")
	if !ok {
		return 0, false
	}
	orgID, ok := value.(uint64)
	return orgID, ok
}

// writeQuotaError maps quota package errors onto HTTP responses. Rejections
// name the quota type but never echo limit or usage numbers back to the org.
func writeQuotaError(c *gin.Context, quotaType string, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "quota limit reached for " + quotaType})
	case errors.Is(err, quota.ErrUnknownQuotaType):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown quota type"})
	case errors.Is(err, quota.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
	case quota.IsRetryable(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quota store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota operation failed"})
	}
}

// Overview returns the status of every quota type for the calling org.
func (h *QuotaHandler) Overview(c *gin.Context) {
	orgID, ok := readOrgIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
		return
	}
	statuses, errOverview := h.guard.Overview(c.Request.Context(), orgID)
	if errOverview != nil {
		writeQuotaError(c, "", errOverview)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotas": statuses})
}

// Get returns the status of a single quota type for the calling org.
func (h *QuotaHandler) Get(c *gin.Context) {
	orgID, ok := readOrgIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	status, errStatus := h.guard.Status(c.Request.Context(), orgID, name)
	if errStatus != nil {
		writeQuotaError(c, name, errStatus)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Check reports whether consuming the given amount would pass the limit.
// The answer is advisory; only Consume takes the enforcement lock.
func (h *QuotaHandler) Check(c *gin.Context) {
	orgID, ok := readOrgIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	amount, errParse := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("amount", "1")), 10, 64)
	if errParse != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	wouldExceed, errCheck := h.guard.WouldExceed(c.Request.Context(), orgID, name, amount)
	if errCheck != nil {
		writeQuotaError(c, name, errCheck)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quota_type": name,
		"amount":     amount,
		"allowed":    !wouldExceed,
	})
}

// amountRequest carries the optional amount for consume and release. A
// missing body or field means one unit.
type amountRequest struct {
	Amount *int64 `json:"amount"`
}

func readAmount(c *gin.Context) (int64, bool) {
	amount := int64(1)
	if c.Request.ContentLength != 0 {
		var body amountRequest
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return 0, false
		}
		if body.Amount != nil {
			amount = *body.Amount
		}
	}
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return 0, false
	}
	return amount, true
}

// Consume atomically reserves the amount against the effective limit and
// returns the new usage.
func (h *QuotaHandler) Consume(c *gin.Context) {
	orgID, ok := readOrgIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	amount, ok := readAmount(c)
	if !ok {
		return
	}

	usage, errConsume := h.guard.CheckAndReserve(c.Request.Context(), orgID, name, amount)
	if errConsume != nil {
		if errors.Is(errConsume, quota.ErrQuotaExceeded) {
			metrics.RecordReservation(name, metrics.OutcomeRejected)
		} else {
			metrics.RecordReservation(name, metrics.OutcomeError)
		}
		writeQuotaError(c, name, errConsume)
		return
	}
	metrics.RecordReservation(name, metrics.OutcomeApplied)
	c.JSON(http.StatusOK, gin.H{
		"quota_type": name,
		"usage":      usage,
	})
}

// Release undoes a prior reservation after the org's own operation failed.
func (h *QuotaHandler) Release(c *gin.Context) {
	orgID, ok := readOrgIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "organization not found"})
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	amount, ok := readAmount(c)
	if !ok {
		return
	}

	usage, errRelease := h.guard.Release(c.Request.Context(), orgID, name, amount)
	if errRelease != nil {
		writeQuotaError(c, name, errRelease)
		return
	}
	metrics.RecordRelease(name)
	c.JSON(http.StatusOK, gin.H{
		"quota_type": name,
		"usage":      usage,
	})
}
