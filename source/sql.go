package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/ratingkit/core"
)

// SQLSource 对接关系型存储的 REST 服务。
//
//   - 商品：GET /products/{id}
//   - 用户：GET /customers/{id}
//   - 历史：GET /reviews/ 全量拉取后按 product_id / customer_id 在客户端过滤
//
// 并发请求中同时在途的 /reviews/ 调用会合并为一次（singleflight），结果不缓存。
type SQLSource struct {
	client  *client
	reviews singleflight.Group
}

// NewSQLSource 创建 SQL 存储适配器，httpClient 为 nil 时按 cfg.Timeout 创建
func NewSQLSource(cfg Config, httpClient *http.Client) *SQLSource {
	return &SQLSource{client: newClient(core.VariantSQL, cfg, httpClient)}
}

func (s *SQLSource) Variant() core.Variant { return core.VariantSQL }

func (s *SQLSource) FetchProduct(ctx context.Context, productID int64) (*core.Product, error) {
	return fetchEntity[core.Product](ctx, s.client, "product", fmt.Sprintf("/products/%d", productID))
}

func (s *SQLSource) FetchCustomer(ctx context.Context, customerID int64) (*core.Customer, error) {
	return fetchEntity[core.Customer](ctx, s.client, "customer", fmt.Sprintf("/customers/%d", customerID))
}

func (s *SQLSource) FetchProductHistory(ctx context.Context, productID int64) []core.RatingRecord {
	all, err := s.allReviews(ctx)
	if err != nil {
		return degraded(ctx, core.VariantSQL, "product", err)
	}
	return filterRecords(all, func(r core.RatingRecord) bool { return r.ProductID == productID })
}

func (s *SQLSource) FetchCustomerHistory(ctx context.Context, customerID int64) []core.RatingRecord {
	all, err := s.allReviews(ctx)
	if err != nil {
		return degraded(ctx, core.VariantSQL, "customer", err)
	}
	return filterRecords(all, func(r core.RatingRecord) bool { return r.CustomerID == customerID })
}

// allReviews 拉取全量评分。返回的切片在合并的调用方之间共享，只读。
func (s *SQLSource) allReviews(ctx context.Context) ([]core.RatingRecord, error) {
	v, err, _ := s.reviews.Do("reviews", func() (any, error) {
		body, err := s.client.get(ctx, "reviews", "/reviews/")
		if err != nil {
			return nil, err
		}
		var records []core.RatingRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("decode reviews: %w", err)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.RatingRecord), nil
}

func filterRecords(all []core.RatingRecord, keep func(core.RatingRecord) bool) []core.RatingRecord {
	out := make([]core.RatingRecord, 0)
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

var _ core.DataSource = (*SQLSource)(nil)
