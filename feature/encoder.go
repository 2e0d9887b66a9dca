package feature

import (
	"fmt"

	"github.com/rushteam/ratingkit/core"
)

// Dimension 类别特征维度
type Dimension string

const (
	DimCategory Dimension = "category" // 商品类目
	DimBrand    Dimension = "brand"    // 商品品牌
	DimGender   Dimension = "gender"   // 用户性别
	DimCountry  Dimension = "country"  // 用户国家
)

// Dimensions 是模型依赖的全部类别维度
var Dimensions = []Dimension{DimCategory, DimBrand, DimGender, DimCountry}

// UnknownCode 空值与训练时未见过的类别统一编码为 0。
// 0 同时也是训练时某个类别的编码，这里是近似处理，不是独立的"未知"哨兵。
const UnknownCode = 0

// LabelEncoder Label 编码（标签编码）
// 将类别映射为训练时确定的整数编码，每个维度一张映射表。
// 构造后只读，可在并发请求间共享。
type LabelEncoder struct {
	labelMap map[Dimension]map[string]int
}

// NewLabelEncoder 使用显式映射表创建编码器（会拷贝入参，之后修改入参不影响编码器）
func NewLabelEncoder(labelMap map[Dimension]map[string]int) *LabelEncoder {
	copied := make(map[Dimension]map[string]int, len(labelMap))
	for dim, m := range labelMap {
		cm := make(map[string]int, len(m))
		for k, v := range m {
			cm[k] = v
		}
		copied[dim] = cm
	}
	return &LabelEncoder{labelMap: copied}
}

// NewLabelEncoderFromClasses 使用有序类别列表创建编码器，编码即下标。
// 与训练侧 LabelEncoder.classes_ 的语义一致。
func NewLabelEncoderFromClasses(classes map[Dimension][]string) (*LabelEncoder, error) {
	labelMap := make(map[Dimension]map[string]int, len(classes))
	for dim, list := range classes {
		m, err := ClassesToMapping(list)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", dim, err)
		}
		labelMap[dim] = m
	}
	return &LabelEncoder{labelMap: labelMap}, nil
}

// ClassesToMapping 把有序类别列表转换为 值->下标 映射，重复类别返回错误
func ClassesToMapping(list []string) (map[string]int, error) {
	m := make(map[string]int, len(list))
	for i, c := range list {
		if _, dup := m[c]; dup {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		m[c] = i
	}
	return m, nil
}

// Encode 编码单个类别值，从不失败。
//   - 空值 -> 0
//   - 已知类别 -> 映射表中的编码
//   - 未知类别 -> 0
func (e *LabelEncoder) Encode(dim Dimension, value string) int {
	if value == "" || e == nil {
		return UnknownCode
	}
	if code, ok := e.labelMap[dim][value]; ok {
		return code
	}
	return UnknownCode
}

// Known 判断类别值是否在训练时出现过
func (e *LabelEncoder) Known(dim Dimension, value string) bool {
	if e == nil {
		return false
	}
	_, ok := e.labelMap[dim][value]
	return ok
}

// Size 返回某维度的类别数
func (e *LabelEncoder) Size(dim Dimension) int {
	if e == nil {
		return 0
	}
	return len(e.labelMap[dim])
}

// Validate 检查四个维度是否都已配置
func (e *LabelEncoder) Validate() error {
	if e == nil {
		return fmt.Errorf("encoder is nil")
	}
	for _, dim := range Dimensions {
		if _, ok := e.labelMap[dim]; !ok {
			return fmt.Errorf("encoder for dimension %s is missing", dim)
		}
	}
	return nil
}

// EncodeProduct 编码商品的 category、brand
func (e *LabelEncoder) EncodeProduct(p *core.Product) (category, brand int) {
	if p == nil {
		return UnknownCode, UnknownCode
	}
	return e.Encode(DimCategory, p.Category), e.Encode(DimBrand, p.Brand)
}

// EncodeCustomer 编码用户的 gender、country
func (e *LabelEncoder) EncodeCustomer(c *core.Customer) (gender, country int) {
	if c == nil {
		return UnknownCode, UnknownCode
	}
	return e.Encode(DimGender, c.Gender), e.Encode(DimCountry, c.Country)
}
