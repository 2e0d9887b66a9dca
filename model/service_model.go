package model

import (
	"context"
	"fmt"

	"github.com/rushteam/ratingkit/core"
)

// ServiceModel 把远程模型服务（core.MLService）适配为 Regressor。
type ServiceModel struct {
	name         string
	Service      core.MLService
	FeatureNames []string
	ModelName    string
	ModelVersion string
}

// NewServiceModel 创建远程模型适配器，name 用于日志/监控（如 "kserve"）
func NewServiceModel(name string, svc core.MLService, featureNames []string) *ServiceModel {
	return &ServiceModel{name: name, Service: svc, FeatureNames: featureNames}
}

func (m *ServiceModel) Name() string { return m.name }

func (m *ServiceModel) Predict(ctx context.Context, features []float64) (float64, error) {
	resp, err := m.Service.Predict(ctx, &core.MLPredictRequest{
		Instances:    [][]float64{features},
		FeatureNames: m.FeatureNames,
		ModelName:    m.ModelName,
		ModelVersion: m.ModelVersion,
	})
	if err != nil {
		return 0, err
	}
	if resp == nil || len(resp.Predictions) != 1 {
		return 0, fmt.Errorf("%s: expected 1 prediction", m.name)
	}
	return resp.Predictions[0], nil
}

// Health 透传远程服务健康检查
func (m *ServiceModel) Health(ctx context.Context) error {
	return m.Service.Health(ctx)
}

// Close 关闭远程服务连接
func (m *ServiceModel) Close(ctx context.Context) error {
	return m.Service.Close(ctx)
}
