package dsl

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/logging"
	"github.com/rushteam/ratingkit/pkg/metrics"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("features", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("result", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 一条审计规则：命中时记录日志并计数，不影响响应。
type Rule struct {
	Name string `koanf:"name" validate:"required"`
	Expr string `koanf:"expr" validate:"required"`
}

// Eval 是编译后的审计表达式，使用 CEL (Common Expression Language)。
//
// 可用变量：
//   - features：特征向量，按名称访问，如 features.price、features.count_product_avg
//   - result：预测结果，字段与响应 JSON 一致，如 result.predicted_rating、result.database
//
// 示例：
//   - `features.count_product_avg == 0.0 && features.count_customer_avg == 0.0` → 冷启动
//   - `result.predicted_rating <= 1.5` → 极低评分
//   - `result.database == "NoSQL" && features.price > 1000.0`
type Eval struct {
	Name string
	Expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(name, expr string) (*Eval, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule %q compile error: %w", name, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule %q must return bool, got %s", name, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule %q program error: %w", name, err)
	}
	return &Eval{Name: name, Expr: expr, prg: prg}, nil
}

// Evaluate 执行表达式，返回布尔结果。
func (e *Eval) Evaluate(features map[string]float64, result map[string]any) (bool, error) {
	out, _, err := e.prg.Eval(map[string]any{
		"features": features,
		"result":   result,
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return matched, nil
}

// Auditor 对每次预测执行全部审计规则。构造后只读，可并发使用。
type Auditor struct {
	rules []*Eval
}

// NewAuditor 编译全部规则，任一规则编译失败即返回错误
func NewAuditor(rules []Rule) (*Auditor, error) {
	a := &Auditor{rules: make([]*Eval, 0, len(rules))}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate audit rule %q", r.Name)
		}
		seen[r.Name] = true
		e, err := Compile(r.Name, r.Expr)
		if err != nil {
			return nil, err
		}
		a.rules = append(a.rules, e)
	}
	return a, nil
}

// Len 返回规则数
func (a *Auditor) Len() int {
	if a == nil {
		return 0
	}
	return len(a.rules)
}

// Audit 返回命中的规则名。执行失败的规则记录 warn 并视为未命中。
func (a *Auditor) Audit(ctx context.Context, features map[string]float64, res *core.PredictionResult) []string {
	if a.Len() == 0 || res == nil {
		return nil
	}
	input := resultInput(res)
	var hits []string
	for _, r := range a.rules {
		matched, err := r.Evaluate(features, input)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("rule", r.Name).Msg("audit rule failed")
			continue
		}
		if !matched {
			continue
		}
		hits = append(hits, r.Name)
		metrics.AuditRuleHits.WithLabelValues(r.Name).Inc()
		logging.Ctx(ctx).Info().
			Str("rule", r.Name).
			Str("database", res.Database).
			Int64("product_id", res.ProductID).
			Int64("customer_id", res.CustomerID).
			Float64("predicted_rating", res.PredictedRating).
			Msg("audit rule matched")
	}
	return hits
}

func resultInput(res *core.PredictionResult) map[string]any {
	return map[string]any{
		"status":                res.Status,
		"database":              res.Database,
		"product_id":            res.ProductID,
		"customer_id":           res.CustomerID,
		"product_name":          res.ProductName,
		"category":              res.Category,
		"price":                 res.Price,
		"customer_country":      res.CustomerCountry,
		"predicted_rating":      res.PredictedRating,
		"product_avg_rating":    res.ProductAvgRating,
		"product_review_count":  int64(res.ProductReviewCount),
		"customer_avg_rating":   res.CustomerAvgRating,
		"customer_review_count": int64(res.CustomerReviewCount),
	}
}
