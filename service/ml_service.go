package service

import (
	"time"
)

// 远程模型服务客户端，统一实现 core.MLService。
//
// 使用示例：
//
//	svc := service.NewKServeClient("http://localhost:8000", "rating", service.WithKServeProtocol(service.KServeV1))
//	resp, err := svc.Predict(ctx, &core.MLPredictRequest{
//	    Instances: [][]float64{features},
//	})

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeKServe    ServiceType = "kserve"    // KServe V1/V2
	ServiceTypeTFServing ServiceType = "tfserving" // TensorFlow Serving REST
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// Type 服务类型
	Type ServiceType

	// Endpoint 服务根地址
	// KServe: "http://localhost:8000"
	// TF Serving: "http://localhost:8501"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Protocol KServe 协议版本 "v1" / "v2"（可选，默认 v2）
	Protocol string

	// Timeout 请求超时，0 使用默认值
	Timeout time.Duration

	// Auth 认证信息（可选）
	Auth *AuthConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string `json:"type" yaml:"type"` // "basic", "bearer", "api_key"
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Token    string `json:"token" yaml:"token"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}
