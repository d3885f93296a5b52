package v1

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditUC domain.AuditUsecase
}

func NewAuditHandler(admins *gin.RouterGroup, auditUC domain.AuditUsecase) {
	handler := &AuditHandler{auditUC: auditUC}

	audit := admins.Group("/admin/audit")
	{
		audit.GET("/events", handler.ListEvents)
		audit.GET("/summary", handler.Summary)
	}
}

// ListEvents godoc
// @Summary      List security events
// @Description  Persisted audit trail, newest first.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        since     query     string  false  "RFC3339 lower bound"
// @Param        until     query     string  false  "RFC3339 upper bound"
// @Param        type      query     string  false  "Comma separated event types"
// @Param        severity  query     string  false  "Comma separated severities"
// @Param        ip        query     string  false  "IP prefix"
// @Param        subject   query     string  false  "Subject search"
// @Param        page      query     int     false  "Page number"
// @Param        pageSize  query     int     false  "Items per page"
// @Success      200       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Router       /admin/audit/events [get]
func (h *AuditHandler) ListEvents(c *gin.Context) {
	filter := domain.AuditEventFilter{
		EventTypes: csvQuery(c, "type"),
		Severities: csvQuery(c, "severity"),
		IP:         strings.TrimSpace(c.Query("ip")),
		Subject:    strings.TrimSpace(c.Query("subject")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	var err error
	if filter.Since, err = timeQuery(c, "since"); err != nil {
		c.Error(err)
		return
	}
	if filter.Until, err = timeQuery(c, "until"); err != nil {
		c.Error(err)
		return
	}

	result, err := h.auditUC.ListEvents(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Security events", result)
}

// Summary godoc
// @Summary      Security event counts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        window  query     string  false  "Trailing window such as 24h or 168h"
// @Success      200     {object}  response.Response{data=domain.AuditSummary}
// @Failure      400     {object}  response.Response
// @Router       /admin/audit/summary [get]
func (h *AuditHandler) Summary(c *gin.Context) {
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			c.Error(apperror.BadRequest("window must be a duration such as 24h"))
			return
		}
		window = d
	}

	summary, err := h.auditUC.Summary(c.Request.Context(), window)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Security summary", summary)
}

func csvQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.BadRequest(key + " must be an RFC3339 timestamp")
	}
	return &t, nil
}
