package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rushteam/ratingkit/core"
)

// DocumentSource 对接文档型存储的 REST 服务，所有资源按数值 id 直接查询。
//
//   - 商品：GET /products/by-product-id/{id}
//   - 用户：GET /customers/by-customer-id/{id}
//   - 商品历史：GET /product-reviews/product/{id}
//   - 用户历史：GET /product-reviews/customer/{id}
type DocumentSource struct {
	client *client
}

// NewDocumentSource 创建文档存储适配器，httpClient 为 nil 时按 cfg.Timeout 创建
func NewDocumentSource(cfg Config, httpClient *http.Client) *DocumentSource {
	return &DocumentSource{client: newClient(core.VariantDocument, cfg, httpClient)}
}

func (s *DocumentSource) Variant() core.Variant { return core.VariantDocument }

func (s *DocumentSource) FetchProduct(ctx context.Context, productID int64) (*core.Product, error) {
	return fetchEntity[core.Product](ctx, s.client, "product", fmt.Sprintf("/products/by-product-id/%d", productID))
}

func (s *DocumentSource) FetchCustomer(ctx context.Context, customerID int64) (*core.Customer, error) {
	return fetchEntity[core.Customer](ctx, s.client, "customer", fmt.Sprintf("/customers/by-customer-id/%d", customerID))
}

func (s *DocumentSource) FetchProductHistory(ctx context.Context, productID int64) []core.RatingRecord {
	return fetchHistory(ctx, s.client, "product", fmt.Sprintf("/product-reviews/product/%d", productID))
}

func (s *DocumentSource) FetchCustomerHistory(ctx context.Context, customerID int64) []core.RatingRecord {
	return fetchHistory(ctx, s.client, "customer", fmt.Sprintf("/product-reviews/customer/%d", customerID))
}

var _ core.DataSource = (*DocumentSource)(nil)
