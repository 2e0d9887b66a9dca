package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// RPCModel 是通过 HTTP 调用外部模型服务的 Regressor 实现。
// 适用于把训练侧模型直接包装成一个 JSON 推理接口的场景。
type RPCModel struct {
	Endpoint     string   // 例如 "http://localhost:8080/predict"
	FeatureNames []string // 请求中使用的特征名，与特征向量位置一一对应
	Timeout      time.Duration
	Client       *http.Client
}

func NewRPCModel(endpoint string, featureNames []string, timeout time.Duration) *RPCModel {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCModel{
		Endpoint:     endpoint,
		FeatureNames: featureNames,
		Timeout:      timeout,
		Client:       &http.Client{Timeout: timeout},
	}
}

func (m *RPCModel) Name() string { return "rpc" }

// Predict 调用远程模型服务进行预测（单条，内部调用批量接口）。
func (m *RPCModel) Predict(ctx context.Context, features []float64) (float64, error) {
	scores, err := m.PredictBatch(ctx, [][]float64{features})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// PredictBatch 调用远程模型服务进行批量预测。
// 请求格式（JSON）：
//
//	{"features_list": [{"price": 25.0, "category_encoded": 3, ...}, ...]}
//
// 响应格式（JSON）：
//
//	{"scores": [4.12, ...]}
func (m *RPCModel) PredictBatch(ctx context.Context, instances [][]float64) ([]float64, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: m.Timeout}
	}
	if len(instances) == 0 {
		return []float64{}, nil
	}

	featuresList := make([]map[string]float64, 0, len(instances))
	for _, inst := range instances {
		if len(inst) != len(m.FeatureNames) {
			return nil, fmt.Errorf("rpc: expected %d features, got %d", len(m.FeatureNames), len(inst))
		}
		named := make(map[string]float64, len(inst))
		for i, name := range m.FeatureNames {
			named[name] = inst[i]
		}
		featuresList = append(featuresList, named)
	}

	jsonData, err := json.Marshal(map[string]any{"features_list": featuresList})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Scores) != len(instances) {
		return nil, fmt.Errorf("response scores count mismatch: expected %d, got %d", len(instances), len(result.Scores))
	}
	return result.Scores, nil
}
