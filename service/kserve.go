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

// KServeProtocol 指定 KServe 协议版本。
const (
	KServeV1 = "v1"
	KServeV2 = "v2"
)

// KServeClient 是 KServe V1/V2 协议的客户端实现。
//
// KServe V1（基于 TensorFlow Serving REST）：
//   - Predict: POST /v1/models/{model_name}:predict
//   - 请求：{"instances": [[...]]}，响应：{"predictions": [...]}
//   - Model Ready: GET /v1/models/{model_name}
//
// KServe V2（Open Inference Protocol）：
//   - Infer: POST /v2/models/{model_name}[/versions/{version}]/infer
//   - 请求：{"inputs": [{"name": "input0", "shape": [batch, 9], "datatype": "FP64", "data": [...]}]}
//   - 响应：{"outputs": [{"name": "...", "data": [...]}]}
//   - Server Ready: GET /v2/health/ready
type KServeClient struct {
	// Endpoint 服务根地址，如 "http://localhost:8000"
	Endpoint string
	// ModelName 模型名称
	ModelName string
	// ModelVersion 模型版本（可选，V2 路径中会带 /versions/{version}）
	ModelVersion string
	// Protocol 协议版本："v1" 或 "v2"，默认 "v2"
	Protocol string
	// V2InputName V2 协议下输入张量名称，默认 "input0"
	V2InputName string
	// V2OutputName V2 协议下期望的输出张量名称；空则取 outputs[0]
	V2OutputName string
	// Timeout 请求超时
	Timeout time.Duration
	// Auth 认证配置
	Auth *AuthConfig

	httpClient *http.Client
}

// NewKServeClient 创建 KServe 客户端。endpoint 为根地址（如 http://localhost:8000），modelName 为模型名。
func NewKServeClient(endpoint, modelName string, opts ...KServeOption) *KServeClient {
	c := &KServeClient{
		Endpoint:    endpoint,
		ModelName:   modelName,
		Protocol:    KServeV2,
		V2InputName: "input0",
		Timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// KServeOption 配置 KServe 客户端
type KServeOption func(*KServeClient)

// WithKServeVersion 设置模型版本
func WithKServeVersion(version string) KServeOption {
	return func(c *KServeClient) {
		c.ModelVersion = version
	}
}

// WithKServeProtocol 设置协议："v1" 或 "v2"，其他值忽略
func WithKServeProtocol(protocol string) KServeOption {
	return func(c *KServeClient) {
		if protocol == KServeV1 || protocol == KServeV2 {
			c.Protocol = protocol
		}
	}
}

// WithKServeV2OutputName 设置 V2 协议下期望的输出张量名称
func WithKServeV2OutputName(name string) KServeOption {
	return func(c *KServeClient) {
		c.V2OutputName = name
	}
}

// WithKServeTimeout 设置超时
func WithKServeTimeout(timeout time.Duration) KServeOption {
	return func(c *KServeClient) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithKServeAuth 设置认证
func WithKServeAuth(auth *AuthConfig) KServeOption {
	return func(c *KServeClient) {
		c.Auth = auth
	}
}

// WithKServeHTTPClient 设置自定义 HTTP 客户端
func WithKServeHTTPClient(client *http.Client) KServeOption {
	return func(c *KServeClient) {
		c.httpClient = client
	}
}

// Predict 实现 core.MLService。
func (c *KServeClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || len(req.Instances) == 0 {
		return nil, fmt.Errorf("kserve: instances are required")
	}
	var (
		predictions []float64
		version     = c.ModelVersion
		err         error
	)
	if c.Protocol == KServeV1 {
		predictions, err = c.predictV1(ctx, req)
	} else {
		predictions, version, err = c.predictV2(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if len(predictions) != len(req.Instances) {
		return nil, fmt.Errorf("kserve: expected %d predictions, got %d", len(req.Instances), len(predictions))
	}
	return &core.MLPredictResponse{Predictions: predictions, ModelVersion: version}, nil
}

func (c *KServeClient) predictV1(ctx context.Context, req *core.MLPredictRequest) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/models/%s:predict", c.Endpoint, c.modelName(req))
	body, err := doJSON(ctx, c.httpClient, c.Auth, url, map[string]any{"instances": req.Instances})
	if err != nil {
		return nil, fmt.Errorf("kserve v1: %w", err)
	}
	var out struct {
		Predictions []any `json:"predictions"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("kserve v1 parse response: %w", err)
	}
	predictions, ok := conv.ToFloat64Slice(out.Predictions)
	if !ok {
		return nil, fmt.Errorf("kserve v1: non-numeric prediction")
	}
	return predictions, nil
}

// v2InferResponse 对应 V2 推理响应
type v2InferResponse struct {
	ModelName    string           `json:"model_name"`
	ModelVersion string           `json:"model_version"`
	Outputs      []v2OutputTensor `json:"outputs"`
}

type v2OutputTensor struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape"`
	Datatype string `json:"datatype"`
	Data     []any  `json:"data"`
}

func (c *KServeClient) predictV2(ctx context.Context, req *core.MLPredictRequest) ([]float64, string, error) {
	path := fmt.Sprintf("%s/v2/models/%s", c.Endpoint, c.modelName(req))
	version := c.ModelVersion
	if req.ModelVersion != "" {
		version = req.ModelVersion
	}
	if version != "" {
		path = fmt.Sprintf("%s/versions/%s", path, version)
	}

	// 展平为行优先
	rows := len(req.Instances)
	dim := len(req.Instances[0])
	data := make([]float64, 0, rows*dim)
	for i, row := range req.Instances {
		if len(row) != dim {
			return nil, "", fmt.Errorf("kserve v2: instance %d has %d features, want %d", i, len(row), dim)
		}
		data = append(data, row...)
	}

	inputName := c.V2InputName
	if inputName == "" {
		inputName = "input0"
	}
	reqBody := map[string]any{
		"inputs": []map[string]any{{
			"name":     inputName,
			"shape":    []int{rows, dim},
			"datatype": "FP64",
			"data":     data,
		}},
	}
	body, err := doJSON(ctx, c.httpClient, c.Auth, path+"/infer", reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("kserve v2: %w", err)
	}

	var out v2InferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", fmt.Errorf("kserve v2 parse response: %w", err)
	}
	if len(out.Outputs) == 0 {
		return nil, "", fmt.Errorf("kserve v2 empty outputs")
	}
	tensor := &out.Outputs[0]
	for i := range out.Outputs {
		if c.V2OutputName != "" && out.Outputs[i].Name == c.V2OutputName {
			tensor = &out.Outputs[i]
			break
		}
	}
	predictions, ok := conv.ToFloat64Slice(tensor.Data)
	if !ok {
		return nil, "", fmt.Errorf("kserve v2: non-numeric output %q", tensor.Name)
	}
	if out.ModelVersion != "" {
		version = out.ModelVersion
	}
	return predictions, version, nil
}

func (c *KServeClient) modelName(req *core.MLPredictRequest) string {
	if req.ModelName != "" {
		return req.ModelName
	}
	return c.ModelName
}

// Health 实现 core.MLService。V1 使用 GET /v1/models/{model_name}，V2 使用 GET /v2/health/ready。
func (c *KServeClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/v2/health/ready", c.Endpoint)
	if c.Protocol == KServeV1 {
		url = fmt.Sprintf("%s/v1/models/%s", c.Endpoint, c.ModelName)
	}
	if _, err := doJSON(ctx, c.httpClient, c.Auth, url, nil); err != nil {
		return fmt.Errorf("kserve health: %w", err)
	}
	return nil
}

// Close 实现 core.MLService。
func (c *KServeClient) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ core.MLService = (*KServeClient)(nil)
