// Package handlers exposes the fulfillment and settlement operations over gin.
package handlers

import (
	"net/http"
	"strconv"

	"laundry-api/apperr"
	"laundry-api/config"
	"laundry-api/fulfillment"
	"laundry-api/logger"
	"laundry-api/settlement"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db          *gorm.DB
	fulfillment *fulfillment.Service
	settlement  *settlement.Service
	auth        config.AuthConfig
}

func New(db *gorm.DB, f *fulfillment.Service, s *settlement.Service, auth config.AuthConfig) *Handler {
	return &Handler{db: db, fulfillment: f, settlement: s, auth: auth}
}

// respondError renders err as {"error", "code", "details"} with the status
// its code maps to. Unknown errors become a bare 500.
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := appErr.HTTPStatus()

	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("code", string(appErr.Code)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	} else {
		log.Debug("request rejected",
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
		)
	}

	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperr.Validation(err.Error()))
}

// paramID reads a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("invalid "+name))
		return 0, false
	}
	return uint(id), true
}
