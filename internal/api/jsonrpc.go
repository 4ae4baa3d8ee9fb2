package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/interactions"
	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods map[string]MethodHandler
	logger  *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler
func NewJSONRPCHandler() *JSONRPCHandler {
	return &JSONRPCHandler{
		methods: make(map[string]MethodHandler),
		logger:  logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method handler
func (h *JSONRPCHandler) RegisterMethod(method string, handler MethodHandler) {
	h.methods[method] = handler
}

// Methods lists the registered method names
func (h *JSONRPCHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	return names
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, rpc.CodeParseError, "Parse error", err)
		return
	}

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, rpc.CodeInvalidRequest, "Invalid Request", fmt.Errorf("invalid jsonrpc version"))
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	// Find method handler
	handler, ok := h.methods[req.Method]
	if !ok {
		h.sendError(c, req.ID, rpc.CodeMethodNotFound, "Method not found", fmt.Errorf("method %s not found", req.Method))
		return
	}

	result, err := handler(c, req.Params)
	if err != nil {
		code, message := classify(err)
		h.sendError(c, req.ID, code, message, err)
		return
	}

	h.sendResponse(c, req.ID, result)
}

// classify maps a handler error to a JSON-RPC code and message
func classify(err error) (int, string) {
	var apiErr *rpc.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, auth.ErrAuthRequired):
		return rpc.CodeAuthRequired, "Authentication required"
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, feed.ErrUnknownTab),
		errors.Is(err, interactions.ErrRecipientNotFound):
		return rpc.CodeInvalidParams, "Invalid params"
	default:
		return rpc.CodeServerError, "Server error"
	}
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	c.JSON(http.StatusOK, resp)
}

// sendError sends an error JSON-RPC response. Caller mistakes log at info;
// everything else at error.
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, code int, message string, err error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
	if err != nil {
		resp.Error.Data = err.Error()
		if code == rpc.CodeServerError || code == rpc.CodeInternalError {
			h.logger.Error("JSON-RPC error", zap.String("message", message), zap.Error(err))
		} else {
			h.logger.Info("JSON-RPC request rejected", zap.Int("code", code), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, resp)
}
