package model

import "context"

// Regressor 是评分预测模型的最小抽象：输入固定顺序的特征向量，输出一个原始预测值。
// 具体实现可以是本地模型（随机森林 / 线性回归）或远程服务（RPC / KServe / TF Serving）。
//
// 实现必须是只读的：加载后在并发请求间共享，不加锁。
type Regressor interface {
	Name() string
	Predict(ctx context.Context, features []float64) (float64, error)
}
