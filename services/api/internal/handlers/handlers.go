// Package handlers exposes the subscriber-facing REST API: device
// registration and topic subscription management. Callers identify
// themselves with the X-User-Address and X-Fcm-Uid headers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavesplatform/push-notifications/internal/model"
	"github.com/wavesplatform/push-notifications/internal/storage"
)

const (
	headerAddress = "X-User-Address"
	headerFcmUID  = "X-Fcm-Uid"
)

type Store interface {
	RegisterDevice(ctx context.Context, address model.Address, fcmUID, language string, utcOffsetSeconds int) error
	UpdateDevice(ctx context.Context, address model.Address, fcmUID string, upd storage.DeviceUpdate) error
	UnregisterDevice(ctx context.Context, address model.Address, fcmUID string) error
	DeviceExists(ctx context.Context, address model.Address, fcmUID string) (bool, error)
	Subscribe(ctx context.Context, address model.Address, reqs []storage.SubscriptionRequest, maxPerAddress int) error
	Unsubscribe(ctx context.Context, address model.Address, topics []string) error
	Subscriptions(ctx context.Context, address model.Address) ([]string, error)
}

type Handler struct {
	Store   Store
	Logger  *slog.Logger
	MaxSubs int
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func New(store Store, logger *slog.Logger, maxSubs int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Logger: logger, MaxSubs: maxSubs}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.PUT("/device", h.RegisterDevice)
	r.PATCH("/device", h.UpdateDevice)
	r.DELETE("/device", h.UnregisterDevice)
	r.GET("/topics", h.ListTopics)
	r.POST("/topics", h.Subscribe)
	r.DELETE("/topics", h.Unsubscribe)
}

type registerDeviceRequest struct {
	Language         string `json:"language"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
}

func (h *Handler) RegisterDevice(c *gin.Context) {
	address, fcmUID, ok := h.identity(c)
	if !ok {
		return
	}

	req := registerDeviceRequest{Language: "en"}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
			return
		}
	}

	err := h.Store.RegisterDevice(c.Request.Context(), address, fcmUID, req.Language, req.UTCOffsetSeconds)
	if err != nil {
		if errors.Is(err, model.ErrInvalidUTCOffset) {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
			return
		}
		h.internalError(c, "device registration failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateDeviceRequest struct {
	Language         *string `json:"language"`
	UTCOffsetSeconds *int    `json:"utc_offset_seconds"`
	FcmUID           *string `json:"fcm_uid"`
}

func (h *Handler) UpdateDevice(c *gin.Context) {
	address, fcmUID, ok := h.identity(c)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	err := h.Store.UpdateDevice(c.Request.Context(), address, fcmUID, storage.DeviceUpdate{
		Language:         req.Language,
		UTCOffsetSeconds: req.UTCOffsetSeconds,
		NewFcmUID:        req.FcmUID,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Code: "DEVICE_NOT_FOUND", Message: "device not registered"})
		case errors.Is(err, model.ErrInvalidUTCOffset):
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		default:
			h.internalError(c, "device update failed", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnregisterDevice(c *gin.Context) {
	address, fcmUID, ok := h.identity(c)
	if !ok {
		return
	}

	if err := h.Store.UnregisterDevice(c.Request.Context(), address, fcmUID); err != nil {
		h.internalError(c, "device unregistration failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type topicsResponse struct {
	Topics []string `json:"topics"`
}

func (h *Handler) ListTopics(c *gin.Context) {
	address, _, ok := h.identity(c)
	if !ok {
		return
	}

	topics, err := h.Store.Subscriptions(c.Request.Context(), address)
	if err != nil {
		h.internalError(c, "subscription listing failed", err)
		return
	}
	if topics == nil {
		topics = []string{}
	}
	c.JSON(http.StatusOK, topicsResponse{Topics: topics})
}

type topicsRequest struct {
	Topics []string `json:"topics"`
}

func (h *Handler) Subscribe(c *gin.Context) {
	address, fcmUID, ok := h.identity(c)
	if !ok {
		return
	}

	var req topicsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Topics) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "topics required"})
		return
	}

	// Subscribing without a registered device would enqueue messages that
	// can never be delivered.
	exists, err := h.Store.DeviceExists(c.Request.Context(), address, fcmUID)
	if err != nil {
		h.internalError(c, "device lookup failed", err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, errorResponse{Code: "DEVICE_NOT_FOUND", Message: "device not registered"})
		return
	}

	reqs := make([]storage.SubscriptionRequest, 0, len(req.Topics))
	for _, raw := range req.Topics {
		topic, mode, err := model.ParseTopic(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_TOPIC", Message: err.Error()})
			return
		}
		reqs = append(reqs, storage.SubscriptionRequest{
			TopicURL: topic.URLString(mode),
			Topic:    topic,
			Mode:     mode,
		})
	}

	if err := h.Store.Subscribe(c.Request.Context(), address, reqs, h.MaxSubs); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "QUOTA_EXCEEDED", Message: err.Error()})
			return
		}
		h.internalError(c, "subscribe failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	address, _, ok := h.identity(c)
	if !ok {
		return
	}

	var topics []string
	if c.Request.ContentLength > 0 {
		var req topicsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
			return
		}
		if len(req.Topics) > 0 {
			// Unsubscribing uses the canonical topic form, so both mode
			// variants of a URL remove the same subscription.
			topics = make([]string, 0, 2*len(req.Topics))
			for _, raw := range req.Topics {
				topic, _, err := model.ParseTopic(raw)
				if err != nil {
					c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_TOPIC", Message: err.Error()})
					return
				}
				topics = append(topics, topic.URLString(model.ModeOnce), topic.URLString(model.ModeRepeat))
			}
		}
	}

	if err := h.Store.Unsubscribe(c.Request.Context(), address, topics); err != nil {
		h.internalError(c, "unsubscribe failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// identity extracts and validates the caller headers; on failure it writes
// the error response and returns ok=false.
func (h *Handler) identity(c *gin.Context) (model.Address, string, bool) {
	address, err := model.ParseAddress(c.GetHeader(headerAddress))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_ADDRESS", Message: err.Error()})
		return "", "", false
	}
	fcmUID := c.GetHeader(headerFcmUID)
	if fcmUID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "MISSING_FCM_UID", Message: "X-Fcm-Uid header required"})
		return "", "", false
	}
	return address, fcmUID, true
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.Logger.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
}
