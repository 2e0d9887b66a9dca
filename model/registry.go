package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/ratingkit/service"
)

// Builder 根据模型描述构建 Regressor。featureNames 为特征向量各位置的名称。
// 各模型类型在 init 中调用 Register(typeName, builder) 即可被产物驱动。
type Builder func(spec *Spec, featureNames []string) (Regressor, error)

var (
	defaultBuilders   = make(map[string]Builder)
	defaultBuildersMu sync.RWMutex
)

// 内置模型类型
const (
	TypeForest    = "forest"
	TypeLinear    = "linear"
	TypeRPC       = "rpc"
	TypeKServe    = "kserve"
	TypeTFServing = "tfserving"
)

func init() {
	Register(TypeForest, buildForest)
	Register(TypeLinear, buildLinear)
	Register(TypeRPC, buildRPC)
	Register(TypeKServe, buildService(service.ServiceTypeKServe))
	Register(TypeTFServing, buildService(service.ServiceTypeTFServing))
}

// Register 注册一种模型类型的构建逻辑，重复注册会覆盖。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的模型类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BuildRegressor 按 spec.Type 查找 Builder 并构建；未注册类型返回包含已支持列表的错误。
func BuildRegressor(spec *Spec, featureNames []string) (Regressor, error) {
	if spec == nil {
		return nil, fmt.Errorf("model spec is nil")
	}
	defaultBuildersMu.RLock()
	builder, ok := defaultBuilders[spec.Type]
	defaultBuildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported model type %q (supported: %v)", spec.Type, SupportedTypes())
	}
	reg, err := builder(spec, featureNames)
	if err != nil {
		return nil, fmt.Errorf("build %s model: %w", spec.Type, err)
	}
	return reg, nil
}

func buildForest(spec *Spec, featureNames []string) (Regressor, error) {
	return NewForestModel(spec.Trees, len(featureNames))
}

func buildLinear(spec *Spec, featureNames []string) (Regressor, error) {
	if len(spec.Coefficients) != len(featureNames) {
		return nil, fmt.Errorf("expected %d coefficients, got %d", len(featureNames), len(spec.Coefficients))
	}
	return NewLinearModel(spec.Bias, spec.Coefficients)
}

func buildRPC(spec *Spec, featureNames []string) (Regressor, error) {
	if spec.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	timeout, err := spec.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return NewRPCModel(spec.Endpoint, featureNames, timeout), nil
}

func buildService(typ service.ServiceType) Builder {
	return func(spec *Spec, featureNames []string) (Regressor, error) {
		timeout, err := spec.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		svc, err := service.NewMLService(&service.ServiceConfig{
			Type:         typ,
			Endpoint:     spec.Endpoint,
			ModelName:    spec.ModelName,
			ModelVersion: spec.Version,
			Protocol:     spec.Protocol,
			Timeout:      timeout,
			Auth:         spec.Auth,
		})
		if err != nil {
			return nil, err
		}
		m := NewServiceModel(string(typ), svc, featureNames)
		m.ModelVersion = spec.Version
		return m, nil
	}
}
