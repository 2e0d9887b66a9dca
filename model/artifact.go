package model

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/ratingkit/feature"
	"github.com/rushteam/ratingkit/service"
)

// Artifact 是训练侧导出的模型产物：四个类别维度的编码表加一个模型描述。
// 支持 JSON 与 YAML 两种格式，启动时加载一次，之后只读。
type Artifact struct {
	Version      string                 `json:"version" yaml:"version"`
	FeatureNames []string               `json:"feature_names" yaml:"feature_names"`
	Encoders     map[string]EncoderSpec `json:"encoders" yaml:"encoders"`
	Model        Spec                   `json:"model" yaml:"model"`
}

// EncoderSpec 单个维度的编码表，Classes 与 Mapping 二选一。
// Classes 为有序类别列表，编码即下标；Mapping 为显式的 值->编码。
type EncoderSpec struct {
	Classes []string       `json:"classes,omitempty" yaml:"classes,omitempty"`
	Mapping map[string]int `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// Spec 模型描述。Type 决定使用哪个 Builder，其余字段按类型取用。
type Spec struct {
	Type string `json:"type" yaml:"type"`

	// forest
	Trees []Tree `json:"trees,omitempty" yaml:"trees,omitempty"`

	// linear
	Bias         float64   `json:"bias,omitempty" yaml:"bias,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`

	// rpc / kserve / tfserving
	Endpoint  string              `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ModelName string              `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	Version   string              `json:"version,omitempty" yaml:"version,omitempty"`
	Protocol  string              `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Timeout   string              `json:"timeout,omitempty" yaml:"timeout,omitempty"` // 如 "2s"
	Auth      *service.AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// TimeoutDuration 解析 Timeout，空串返回 0
func (s *Spec) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", s.Timeout)
	}
	return d, nil
}

// Decode 解析产物内容：以 '{' 开头按 JSON 解析，否则按 YAML 解析。
func Decode(data []byte) (*Artifact, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty model artifact")
	}
	var a Artifact
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &a); err != nil {
			return nil, fmt.Errorf("decode json artifact: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &a); err != nil {
			return nil, fmt.Errorf("decode yaml artifact: %w", err)
		}
	}
	return &a, nil
}

// Validate 检查特征顺序契约与编码表完整性，模型本身由 Builder 校验。
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("artifact is nil")
	}
	if !slices.Equal(a.FeatureNames, feature.Names()) {
		return fmt.Errorf("feature_names %v do not match expected order %v", a.FeatureNames, feature.Names())
	}
	for _, dim := range feature.Dimensions {
		spec, ok := a.Encoders[string(dim)]
		if !ok {
			return fmt.Errorf("missing encoder for dimension %s", dim)
		}
		if len(spec.Classes) > 0 && len(spec.Mapping) > 0 {
			return fmt.Errorf("encoder %s: classes and mapping are mutually exclusive", dim)
		}
	}
	if a.Model.Type == "" {
		return fmt.Errorf("model type is required")
	}
	return nil
}

// Encoder 根据编码表构建 LabelEncoder
func (a *Artifact) Encoder() (*feature.LabelEncoder, error) {
	labelMap := make(map[feature.Dimension]map[string]int, len(feature.Dimensions))
	for _, dim := range feature.Dimensions {
		spec := a.Encoders[string(dim)]
		if len(spec.Mapping) > 0 {
			labelMap[dim] = spec.Mapping
			continue
		}
		m, err := feature.ClassesToMapping(spec.Classes)
		if err != nil {
			return nil, fmt.Errorf("encoder %s: %w", dim, err)
		}
		labelMap[dim] = m
	}
	enc := feature.NewLabelEncoder(labelMap)
	if err := enc.Validate(); err != nil {
		return nil, err
	}
	return enc, nil
}

// Bundle 是加载完成、可直接用于推理的模型：编码器 + 回归器。
type Bundle struct {
	Version   string
	Encoder   *feature.LabelEncoder
	Regressor Regressor
}

// Build 校验产物并构建 Bundle
func (a *Artifact) Build() (*Bundle, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	enc, err := a.Encoder()
	if err != nil {
		return nil, err
	}
	reg, err := BuildRegressor(&a.Model, a.FeatureNames)
	if err != nil {
		return nil, err
	}
	return &Bundle{Version: a.Version, Encoder: enc, Regressor: reg}, nil
}

// closer 远程回归器实现，关闭时释放连接
type closer interface {
	Close(ctx context.Context) error
}

// healthChecker 远程回归器实现，用于 /health
type healthChecker interface {
	Health(ctx context.Context) error
}

// Health 远程模型返回服务健康状态，本地模型恒为 nil
func (b *Bundle) Health(ctx context.Context) error {
	if h, ok := b.Regressor.(healthChecker); ok {
		return h.Health(ctx)
	}
	return nil
}

// Close 释放远程模型连接
func (b *Bundle) Close(ctx context.Context) error {
	if c, ok := b.Regressor.(closer); ok {
		return c.Close(ctx)
	}
	return nil
}
