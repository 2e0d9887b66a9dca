package predict

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/feature"
	"github.com/rushteam/ratingkit/model"
	"github.com/rushteam/ratingkit/pkg/metrics"
)

// 评分区间
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Assembler 把商品、用户和两份历史组装为特征向量，调用模型并生成响应。
// 编码器与模型加载后只读，Assembler 可并发使用。
type Assembler struct {
	encoder   *feature.LabelEncoder
	regressor model.Regressor
}

// NewAssembler 创建组装器
func NewAssembler(encoder *feature.LabelEncoder, regressor model.Regressor) (*Assembler, error) {
	if err := encoder.Validate(); err != nil {
		return nil, err
	}
	if regressor == nil {
		return nil, fmt.Errorf("regressor is required")
	}
	return &Assembler{encoder: encoder, regressor: regressor}, nil
}

// Assembly 组装结果：响应体与实际送入模型的特征向量
type Assembly struct {
	Result   *core.PredictionResult
	Features feature.Vector
	Raw      float64 // 模型原始输出（截断前）
}

// Assemble 执行一次预测：统计 -> 编码 -> 组装向量 -> 推理 -> 截断 -> 保留两位小数。
// 模型调用失败或输出非有限数时返回 PREDICTION_FAILED。
func (a *Assembler) Assemble(
	ctx context.Context,
	product *core.Product,
	customer *core.Customer,
	productHistory, customerHistory []core.RatingRecord,
	variant core.Variant,
) (*Assembly, error) {
	if product == nil || customer == nil {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInternalError, "product and customer are required")
	}

	productStats := feature.Aggregate(productHistory)
	customerStats := feature.Aggregate(customerHistory)
	vec := feature.BuildVector(product, customer, productStats, customerStats, a.encoder)

	backend := a.regressor.Name()
	raw, err := a.regressor.Predict(ctx, vec.Slice())
	if err != nil {
		metrics.ModelPredictions.WithLabelValues(backend, "error").Inc()
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodePredictionFailed, "model prediction failed", err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		metrics.ModelPredictions.WithLabelValues(backend, "invalid").Inc()
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodePredictionFailed,
			fmt.Sprintf("model returned non-finite prediction %v", raw))
	}
	metrics.ModelPredictions.WithLabelValues(backend, "ok").Inc()

	return &Assembly{
		Result: &core.PredictionResult{
			Status:              core.StatusSuccess,
			Database:            variant.Tag(),
			ProductID:           product.ProductID,
			CustomerID:          customer.CustomerID,
			ProductName:         product.ProductName,
			Category:            product.Category,
			Price:               product.Price,
			CustomerCountry:     customer.Country,
			PredictedRating:     Round2(Clamp(raw)),
			ProductAvgRating:    Round2(productStats.Mean),
			ProductReviewCount:  productStats.Count,
			CustomerAvgRating:   Round2(customerStats.Mean),
			CustomerReviewCount: customerStats.Count,
		},
		Features: vec,
		Raw:      raw,
	}, nil
}

// Clamp 截断到 [1.0, 5.0]
func Clamp(raw float64) float64 {
	return math.Max(MinRating, math.Min(MaxRating, raw))
}

// Round2 按 x 的精确二进制值保留两位小数，恰好为 .5 时取偶。
// 不能用 x*100 再取整：乘法本身会舍入，1.075（实际为 1.07499…）会变成 1.08。
func Round2(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return v
}
