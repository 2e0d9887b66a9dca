package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/conv"
)

// TFServingClient 是 TensorFlow Serving REST API（端口 8501）的客户端实现。
//
//   - Predict: POST /v1/models/{name}[/versions/{v}]:predict
//   - Status:  GET  /v1/models/{name}[/versions/{v}]
type TFServingClient struct {
	// Endpoint 服务根地址，如 "http://localhost:8501"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string

	// SignatureName 签名名称（默认 "serving_default"）
	SignatureName string

	Timeout time.Duration
	Auth    *AuthConfig

	httpClient *http.Client
}

// NewTFServingClient 创建一个新的 TF Serving 客户端。
func NewTFServingClient(endpoint, modelName string, opts ...TFServingOption) *TFServingClient {
	c := &TFServingClient{
		Endpoint:      endpoint,
		ModelName:     modelName,
		SignatureName: "serving_default",
		Timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// TFServingOption TF Serving 客户端配置选项
type TFServingOption func(*TFServingClient)

// WithTFServingVersion 设置模型版本
func WithTFServingVersion(version string) TFServingOption {
	return func(c *TFServingClient) {
		c.ModelVersion = version
	}
}

// WithTFServingSignature 设置签名名称
func WithTFServingSignature(signatureName string) TFServingOption {
	return func(c *TFServingClient) {
		c.SignatureName = signatureName
	}
}

// WithTFServingTimeout 设置超时时间
func WithTFServingTimeout(timeout time.Duration) TFServingOption {
	return func(c *TFServingClient) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTFServingAuth 设置认证信息
func WithTFServingAuth(auth *AuthConfig) TFServingOption {
	return func(c *TFServingClient) {
		c.Auth = auth
	}
}

// WithTFServingHTTPClient 设置自定义 HTTP 客户端
func WithTFServingHTTPClient(client *http.Client) TFServingOption {
	return func(c *TFServingClient) {
		c.httpClient = client
	}
}

func (c *TFServingClient) modelURL() string {
	if c.ModelVersion != "" {
		return fmt.Sprintf("%s/v1/models/%s/versions/%s", c.Endpoint, c.ModelName, c.ModelVersion)
	}
	return fmt.Sprintf("%s/v1/models/%s", c.Endpoint, c.ModelName)
}

// Predict 实现 core.MLService 接口
func (c *TFServingClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || len(req.Instances) == 0 {
		return nil, fmt.Errorf("tf serving: instances are required")
	}

	body := map[string]any{"instances": req.Instances}
	if c.SignatureName != "" {
		body["signature_name"] = c.SignatureName
	}
	data, err := doJSON(ctx, c.httpClient, c.Auth, c.modelURL()+":predict", body)
	if err != nil {
		return nil, fmt.Errorf("tf serving: %w", err)
	}

	var result struct {
		Predictions []any `json:"predictions"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("tf serving decode response: %w", err)
	}
	predictions, ok := conv.ToFloat64Slice(result.Predictions)
	if !ok {
		return nil, fmt.Errorf("tf serving: non-numeric prediction")
	}
	if len(predictions) != len(req.Instances) {
		return nil, fmt.Errorf("tf serving: expected %d predictions, got %d", len(req.Instances), len(predictions))
	}
	return &core.MLPredictResponse{
		Predictions:  predictions,
		ModelVersion: c.ModelVersion,
	}, nil
}

// Health 查询模型状态
func (c *TFServingClient) Health(ctx context.Context) error {
	if _, err := doJSON(ctx, c.httpClient, c.Auth, c.modelURL(), nil); err != nil {
		return fmt.Errorf("tf serving health: %w", err)
	}
	return nil
}

// Close 释放空闲连接
func (c *TFServingClient) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ core.MLService = (*TFServingClient)(nil)
