package predict

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/logging"
	"github.com/rushteam/ratingkit/pkg/metrics"
)

// Auditor 在预测成功后检查结果，只记录不修改。
type Auditor interface {
	Audit(ctx context.Context, features map[string]float64, res *core.PredictionResult) []string
}

// Predictor 是预测请求的编排入口：校验参数、并发拉取数据、映射缺失、调用 Assembler。
//
// 流程：
//  1. 校验 id >= 1 与存储类型
//  2. 并发拉取商品与用户；先检查商品，缺失则立即失败，再检查用户
//  3. 并发拉取两份历史（失败降级为空，不会出错）
//  4. 组装并推理
//
// 不做任何重试。
type Predictor struct {
	sources   map[core.Variant]core.DataSource
	assembler *Assembler
	auditor   Auditor
}

// Option 配置 Predictor
type Option func(*Predictor)

// WithAuditor 设置审计规则
func WithAuditor(a Auditor) Option {
	return func(p *Predictor) {
		p.auditor = a
	}
}

// NewPredictor 创建编排器，每种存储类型至多一个数据源
func NewPredictor(assembler *Assembler, sources []core.DataSource, opts ...Option) (*Predictor, error) {
	if assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	p := &Predictor{
		sources:   make(map[core.Variant]core.DataSource, len(sources)),
		assembler: assembler,
	}
	for _, s := range sources {
		v := s.Variant()
		if _, dup := p.sources[v]; dup {
			return nil, fmt.Errorf("duplicate data source for variant %s", v)
		}
		p.sources[v] = s
	}
	if len(p.sources) == 0 {
		return nil, fmt.Errorf("at least one data source is required")
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Variants 返回已配置的存储类型（排序）
func (p *Predictor) Variants() []core.Variant {
	out := make([]core.Variant, 0, len(p.sources))
	for v := range p.sources {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Predict 预测 customerID 对 productID 的评分。
//
// 错误：
//   - INVALID_INPUT：id < 1 或存储类型未配置
//   - NOT_FOUND：商品或用户不存在，或存储不可达（原因保留在错误链中）
//   - PREDICTION_FAILED：模型推理失败
func (p *Predictor) Predict(ctx context.Context, productID, customerID int64, variant core.Variant) (res *core.PredictionResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPrediction(string(variant), outcome(err), time.Since(start))
	}()

	if productID < 1 || customerID < 1 {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			fmt.Sprintf("product_id and customer_id must be positive integers, got %d and %d", productID, customerID))
	}
	src, ok := p.sources[variant]
	if !ok {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unsupported database variant %q", variant))
	}

	log := logging.Ctx(ctx).With().
		Str("database", variant.Tag()).
		Int64("product_id", productID).
		Int64("customer_id", customerID).
		Logger()
	log.Debug().Msg("fetching prediction inputs")

	var (
		product         *core.Product
		customer        *core.Customer
		productErr      error
		customerErr     error
		productHistory  []core.RatingRecord
		customerHistory []core.RatingRecord
	)

	// 两侧都等到结束再按商品优先的顺序检查，缺失优先级与完成先后无关
	var wg sync.WaitGroup
	wg.Go(func() {
		product, productErr = src.FetchProduct(ctx, productID)
	})
	wg.Go(func() {
		customer, customerErr = src.FetchCustomer(ctx, customerID)
	})
	wg.Wait()

	if productErr != nil || product == nil {
		log.Info().Err(productErr).Msg("product absent")
		return nil, absent("Product", productID, variant, productErr)
	}
	if customerErr != nil || customer == nil {
		log.Info().Err(customerErr).Msg("customer absent")
		return nil, absent("Customer", customerID, variant, customerErr)
	}

	// 历史拉取不会失败，失败已在数据源内降级为空列表
	wg.Go(func() {
		productHistory = src.FetchProductHistory(ctx, productID)
	})
	wg.Go(func() {
		customerHistory = src.FetchCustomerHistory(ctx, customerID)
	})
	wg.Wait()

	asm, err := p.assembler.Assemble(ctx, product, customer, productHistory, customerHistory, variant)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		return nil, err
	}

	if p.auditor != nil {
		p.auditor.Audit(ctx, asm.Features.Map(), asm.Result)
	}
	log.Info().
		Float64("raw", asm.Raw).
		Float64("predicted_rating", asm.Result.PredictedRating).
		Msg("prediction completed")
	return asm.Result, nil
}

// absent 构造缺失错误，存储不可达也按缺失对外返回。
func absent(kind string, id int64, variant core.Variant, cause error) error {
	return core.WrapDomainError(core.ModulePredict, core.ErrorCodeNotFound,
		fmt.Sprintf("%s %d not found in %s database", kind, id, variant.Tag()), cause)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case core.IsInvalidInput(err):
		return "invalid_input"
	case core.IsNotFound(err):
		return "not_found"
	case core.IsPredictionFailed(err):
		return "prediction_failed"
	default:
		return "error"
	}
}
