package core

import "context"

// MLService 是远程模型服务的领域接口。
//
// 定义在领域层（core），由基础设施层（service）实现；model 包通过它把远程服务适配为回归模型。
//
// 实现：
//   - service.KServeClient（KServe V1/V2 协议）
//   - service.TFServingClient（TF Serving REST）
type MLService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Instances 特征实例列表，每个实例是按固定顺序排列的特征向量
	Instances [][]float64

	// FeatureNames 与 Instances 列顺序一致的特征名（可选，部分服务按名称取特征）
	FeatureNames []string

	// ModelName 模型名称（可选，如果服务支持多模型）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Predictions 预测结果列表（与请求实例一一对应）
	Predictions []float64

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
