// Package handler exposes the ledger over HTTP. Handlers bind and validate
// requests, call the application layer and translate its errors; they hold
// no ledger logic of their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getActorID extracts the actor from JWT claims
func getActorID(c *gin.Context) (uuid.UUID, error) {
	return middleware.GetActorID(c)
}

// parseUUIDParam parses a path parameter as a UUID
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError("invalid %s: must be a UUID", name)
	}
	return id, nil
}

// parseUUIDQuery parses an optional query parameter as a UUID
func parseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewValidationError("invalid %s: must be a UUID", name)
	}
	return &id, nil
}

// parseInt64Query parses an optional non-negative integer query parameter
func parseInt64Query(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, shared.NewValidationError("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindingError answers a request that failed gin binding
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError translates an application error into a response. Ledger
// errors keep their code; anything else is logged and reported as 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.L(c.Request.Context()).Error("Unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	status := dto.GetHTTPStatus(domainErr.Code)
	resp := dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, middleware.GetRequestID(c))

	var stockErr *shared.InsufficientStockError
	if errors.As(err, &stockErr) {
		resp.Error.Stock = &dto.StockShortfall{
			ProductID:   stockErr.ProductID.String(),
			WarehouseID: stockErr.WarehouseID.String(),
			Available:   stockErr.Available,
			Requested:   stockErr.Requested,
		}
	}
	if domainErr.Code == shared.CodeNegativeStock {
		logger.L(c.Request.Context()).Error("Stock invariant violated", zap.Error(err))
	}
	if shared.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}

	c.Set(middleware.ErrorCodeKey, domainErr.Code)
	c.JSON(status, resp)
}
