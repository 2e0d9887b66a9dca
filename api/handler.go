package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/logging"
)

// Predictor 预测编排接口（predict.Predictor 实现）
type Predictor interface {
	Predict(ctx context.Context, productID, customerID int64, variant core.Variant) (*core.PredictionResult, error)
}

// HealthChecker 模型健康检查（model.Bundle 实现，本地模型恒健康）
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PredictRequest 预测请求体
type PredictRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	CustomerID int64 `json:"customer_id" validate:"required,gt=0"`
}

// HandlerConfig 处理器依赖
type HandlerConfig struct {
	Predictor    Predictor
	Model        HealthChecker
	ModelVersion string
	ModelBackend string
	// Databases 已启用的存储及其地址，键为 "sql" / "nosql"
	Databases map[string]string
}

// Handler HTTP 处理器
type Handler struct {
	cfg      HandlerConfig
	validate *validator.Validate
}

// NewHandler 创建处理器
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	return &Handler{
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// maxRequestBody 请求体上限
const maxRequestBody = 1 << 16

// Predict 返回指定存储类型的预测处理函数
func (h *Handler) Predict(variant core.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "failed to read request body")
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "request body must be JSON with integer product_id and customer_id")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "product_id and customer_id are required positive integers")
			return
		}

		res, err := h.cfg.Predictor.Predict(r.Context(), req.ProductID, req.CustomerID, variant)
		if err != nil {
			logging.Ctx(r.Context()).Info().Err(err).Str("database", variant.Tag()).Msg("predict request failed")
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, res)
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status       string            `json:"status"`
	ModelLoaded  bool              `json:"model_loaded"`
	ModelVersion string            `json:"model_version,omitempty"`
	ModelBackend string            `json:"model_backend,omitempty"`
	Databases    map[string]string `json:"databases"`
	Error        string            `json:"error,omitempty"`
}

// Health 健康检查：远程模型不可用时返回 503
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "healthy",
		ModelLoaded:  true,
		ModelVersion: h.cfg.ModelVersion,
		ModelBackend: h.cfg.ModelBackend,
		Databases:    h.cfg.Databases,
	}
	if h.cfg.Model != nil {
		if err := h.cfg.Model.Health(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// endpoint 接口说明
type endpoint struct {
	Path           string         `json:"path"`
	Method         string         `json:"method"`
	Description    string         `json:"description"`
	RequiredFields []string       `json:"required_fields,omitempty"`
	Example        map[string]int `json:"example,omitempty"`
}

// Root 接口总览
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	example := map[string]int{"product_id": 1, "customer_id": 1}
	fields := []string{"product_id", "customer_id"}
	endpoints := map[string]endpoint{
		"health":  {Path: "/health", Method: http.MethodGet, Description: "Service health and model status"},
		"metrics": {Path: "/metrics", Method: http.MethodGet, Description: "Prometheus metrics"},
	}
	if _, ok := h.cfg.Databases["sql"]; ok {
		endpoints["sql_predict"] = endpoint{
			Path:           "/sql/predict",
			Method:         http.MethodPost,
			Description:    "Predict a rating using the SQL database",
			RequiredFields: fields,
			Example:        example,
		}
	}
	if _, ok := h.cfg.Databases["nosql"]; ok {
		endpoints["nosql_predict"] = endpoint{
			Path:           "/nosql/predict",
			Method:         http.MethodPost,
			Description:    "Predict a rating using the NoSQL database",
			RequiredFields: fields,
			Example:        example,
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":       "Rating Prediction API",
		"model_version": h.cfg.ModelVersion,
		"endpoints":     endpoints,
		"databases":     h.cfg.Databases,
	})
}
