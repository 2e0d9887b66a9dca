package feature

import "github.com/rushteam/ratingkit/core"

// VectorSize 模型输入特征数
const VectorSize = 9

// 特征下标。模型不认识特征名，只认位置，顺序调整会静默破坏预测结果。
const (
	IdxPrice = iota
	IdxCategory
	IdxBrand
	IdxGender
	IdxCountry
	IdxMeanProduct
	IdxCountProduct
	IdxMeanCustomer
	IdxCountCustomer
)

// VectorNames 与训练时一致的特征名，顺序即模型输入顺序
var VectorNames = [VectorSize]string{
	"price",
	"category_encoded",
	"brand_encoded",
	"gender_encoded",
	"country_encoded",
	"mean_product_avg",
	"count_product_avg",
	"mean_customer_avg",
	"count_customer_avg",
}

// Vector 固定顺序的特征向量
type Vector [VectorSize]float64

// Slice 返回特征向量的切片拷贝
func (v Vector) Slice() []float64 {
	out := make([]float64, VectorSize)
	copy(out, v[:])
	return out
}

// Map 返回 特征名 -> 值，供按名称取特征的远程模型与审计规则使用
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, VectorSize)
	for i, name := range VectorNames {
		out[name] = v[i]
	}
	return out
}

// Names 返回特征名切片拷贝
func Names() []string {
	out := make([]string, VectorSize)
	copy(out, VectorNames[:])
	return out
}

// BuildVector 按固定顺序组装特征向量
func BuildVector(p *core.Product, c *core.Customer, productStats, customerStats RatingStats, enc *LabelEncoder) Vector {
	var v Vector
	if p != nil {
		v[IdxPrice] = p.Price
	}
	category, brand := enc.EncodeProduct(p)
	gender, country := enc.EncodeCustomer(c)
	v[IdxCategory] = float64(category)
	v[IdxBrand] = float64(brand)
	v[IdxGender] = float64(gender)
	v[IdxCountry] = float64(country)
	v[IdxMeanProduct] = productStats.Mean
	v[IdxCountProduct] = float64(productStats.Count)
	v[IdxMeanCustomer] = customerStats.Mean
	v[IdxCountCustomer] = float64(customerStats.Count)
	return v
}
