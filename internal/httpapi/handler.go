package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"schooldesk/internal/auth"
	"schooldesk/internal/dispatch"
	"schooldesk/internal/httpmiddleware"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
	"schooldesk/internal/store"
)

// AuthTokenHeader carries a session token on successful logins.
const AuthTokenHeader = "X-Auth-Token"

const maxBodyBytes = 1 << 20

type Handler struct {
	dispatcher *dispatch.Dispatcher
	store      rowstore.Store
	redis      *store.Redis
	logger     *slog.Logger
	auth       AuthConfig
}

// ---------- Dispatch ----------

// Dispatch reads the body raw so text/plain posts work. Every answer is an
// envelope; only a malformed body is a 400.
func (h *Handler) Dispatch(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, dispatch.Failure("invalid request: "+err.Error()))
		return
	}
	req, err := dispatch.DecodeRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dispatch.Failure(err.Error()))
		return
	}

	info, known := dispatch.Lookup(req.Action)
	if known && h.auth.Required {
		if code, msg := h.authorize(c, req.Action, info); code != http.StatusOK {
			c.JSON(code, dispatch.Failure(msg))
			return
		}
	}

	ctx := dispatch.WithRequestID(c.Request.Context(), httpmiddleware.RequestIDFrom(c))
	env := h.dispatcher.Dispatch(ctx, req)

	if info.Login && env.OK() && env.Data != nil && h.auth.Required {
		if err := h.issueSession(c, env.Data); err != nil {
			h.logger.ErrorContext(ctx, "session issue failed", "action", req.Action, "error", err)
			c.JSON(http.StatusOK, dispatch.Failure("could not start a session, try again"))
			return
		}
	}
	c.JSON(http.StatusOK, env)
}

// ---------- Export ----------

// Export streams one table as CSV. Only row collections can be exported, and
// the password column never leaves the server.
func (h *Handler) Export(c *gin.Context) {
	if h.auth.Required {
		if _, ok := auth.ClaimsFrom(c); !ok {
			c.JSON(http.StatusUnauthorized, dispatch.Failure(msgLoginRequired))
			return
		}
	}

	name := c.Query("sheet")
	if !exportable(name) {
		c.JSON(http.StatusNotFound, dispatch.Failure("unknown sheet: "+name))
		return
	}
	sheet, err := h.store.Sheet(c.Request.Context(), name)
	if errors.Is(err, rowstore.ErrSheetNotFound) {
		c.JSON(http.StatusNotFound, dispatch.Failure("unknown sheet: "+name))
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "export failed", "sheet", name, "error", err)
		c.JSON(http.StatusInternalServerError, dispatch.Failure("export failed"))
		return
	}
	values, err := sheet.Values(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "export failed", "sheet", name, "error", err)
		c.JSON(http.StatusInternalServerError, dispatch.Failure("export failed"))
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := rowstore.WriteCSV(c.Writer, values); err != nil {
		h.logger.WarnContext(c.Request.Context(), "export interrupted", "sheet", name, "error", err)
	}
}

func exportable(name string) bool {
	for _, t := range school.Tables {
		if t.Sheet == name {
			return true
		}
	}
	return false
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	storeHealthy := h.store != nil && h.store.Ping(ctx) == nil
	body := gin.H{"status": "ok", "store": storeHealthy}
	status := http.StatusOK
	if !storeHealthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	if h.redis != nil {
		redisHealthy := h.redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
