package core

// Variant 标识后端存储类型。两种存储对外暴露的资源形态不同，但数据语义一致。
type Variant string

const (
	VariantSQL      Variant = "sql"      // 关系型存储
	VariantDocument Variant = "document" // 文档型存储（MongoDB）
)

// Tag 返回响应中 database 字段使用的标签。
func (v Variant) Tag() string {
	switch v {
	case VariantSQL:
		return "SQL"
	case VariantDocument:
		return "NoSQL"
	default:
		return string(v)
	}
}

// Valid 判断是否为已知的存储类型
func (v Variant) Valid() bool {
	return v == VariantSQL || v == VariantDocument
}

// Product 商品。category/brand 在存储中可能为空，缺失时解码为 ""。
type Product struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Brand         string  `json:"brand"`
}

// ID 返回商品 id，0 表示存储返回了空对象
func (p *Product) ID() int64 { return p.ProductID }

// Customer 用户。gender/country 可能为空，缺失时解码为 ""。
type Customer struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Gender     string `json:"gender"`
	Country    string `json:"country"`
}

// ID 返回用户 id，0 表示存储返回了空对象
func (c *Customer) ID() int64 { return c.CustomerID }

// RatingRecord 一条历史评分，只读。ReviewText 不参与计算。
type RatingRecord struct {
	ReviewID   int64  `json:"review_id"`
	ProductID  int64  `json:"product_id"`
	CustomerID int64  `json:"customer_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

// PredictionResult 是预测接口的响应体。
// 评分与均值保留两位小数（四舍六入五成双），计数为原始值。
type PredictionResult struct {
	Status              string  `json:"status"`
	Database            string  `json:"database"`
	ProductID           int64   `json:"product_id"`
	CustomerID          int64   `json:"customer_id"`
	ProductName         string  `json:"product_name"`
	Category            string  `json:"category"`
	Price               float64 `json:"price"`
	CustomerCountry     string  `json:"customer_country"`
	PredictedRating     float64 `json:"predicted_rating"`
	ProductAvgRating    float64 `json:"product_avg_rating"`
	ProductReviewCount  int     `json:"product_review_count"`
	CustomerAvgRating   float64 `json:"customer_avg_rating"`
	CustomerReviewCount int     `json:"customer_review_count"`
}

// StatusSuccess 是成功响应的 status 字段值
const StatusSuccess = "success"
