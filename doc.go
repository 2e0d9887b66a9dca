// Package ratingkit 是一个评分预测服务工具包。
//
// 设计要点：
// - 存储无关：SQL 与文档型存储实现同一个 DataSource，预测结果只在 database 标签上不同
// - 特征固定：9 维特征向量的顺序与训练时一致，由 feature 包统一组装
// - 模型可插拔：本地树模型/线性模型与 KServe、TF Serving、RPC 远程模型共用 Regressor 接口
package ratingkit

import (
	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/predict"
)

// 轻量 facade：便于直接 import "ratingkit" 使用核心抽象。
type (
	Predictor        = predict.Predictor
	Variant          = core.Variant
	DataSource       = core.DataSource
	PredictionResult = core.PredictionResult
)

const (
	VariantSQL      = core.VariantSQL
	VariantDocument = core.VariantDocument
)
