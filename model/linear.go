package model

import (
	"context"
	"fmt"
)

// LinearModel 实现了线性回归 (Linear Regression) 模型。
//
// 预测原理：y = Bias + sum(Coefficients_i * Feature_i)
//
// 与 LR 点击率模型不同，这里直接输出回归值，不做 Sigmoid 变换，越界由调用方截断。
type LinearModel struct {
	Bias         float64   // 偏置项 (Intercept)
	Coefficients []float64 // 与特征向量位置一一对应的系数
}

// NewLinearModel 创建线性回归模型
func NewLinearModel(bias float64, coefficients []float64) (*LinearModel, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("linear model has no coefficients")
	}
	coef := make([]float64, len(coefficients))
	copy(coef, coefficients)
	return &LinearModel{Bias: bias, Coefficients: coef}, nil
}

func (m *LinearModel) Name() string { return "linear" }

func (m *LinearModel) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("linear: expected %d features, got %d", len(m.Coefficients), len(features))
	}
	y := m.Bias
	for i, w := range m.Coefficients {
		y += w * features[i]
	}
	return y, nil
}
