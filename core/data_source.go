package core

import "context"

// DataSource 是后端存储的领域接口，屏蔽 SQL / 文档存储之间的资源差异。
//
// 语义约定：
//   - FetchProduct / FetchCustomer：不存在返回 NOT_FOUND，网络失败或超时返回 UNAVAILABLE，
//     调用方都按"缺失"处理，不能当作空数据
//   - FetchProductHistory / FetchCustomerHistory：任何失败都吸收为空列表，不向调用方返回错误
//
// 实现：
//   - source.SQLSource：GET /products/{id}，历史需拉全量 /reviews/ 后在客户端过滤
//   - source.DocumentSource：GET /products/by-product-id/{id}，历史按 key 直接查询
type DataSource interface {
	// Variant 返回存储类型（用于日志/监控与响应标签）
	Variant() Variant

	// FetchProduct 获取商品
	FetchProduct(ctx context.Context, productID int64) (*Product, error)

	// FetchCustomer 获取用户
	FetchCustomer(ctx context.Context, customerID int64) (*Customer, error)

	// FetchProductHistory 获取商品的历史评分（可能为空，不会缺失）
	FetchProductHistory(ctx context.Context, productID int64) []RatingRecord

	// FetchCustomerHistory 获取用户的历史评分（可能为空，不会缺失）
	FetchCustomerHistory(ctx context.Context, customerID int64) []RatingRecord
}
