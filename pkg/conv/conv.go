// Package conv 提供模型服务响应解析中常用的类型转换。
package conv

// ToFloat64 将 JSON 解码得到的 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// FirstScalar 返回标量本身，或嵌套数组的第一个标量（多输出模型取第一列）。
func FirstScalar(v any) (float64, bool) {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return 0, false
		}
		return FirstScalar(arr[0])
	}
	return ToFloat64(v)
}

// ToFloat64Slice 逐个转换，任一元素无法转换时返回 false。
func ToFloat64Slice(vs []any) ([]float64, bool) {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		f, ok := FirstScalar(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
