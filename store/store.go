// Package store 提供 core.Store 的实现，只用于读取模型产物。
//
// 示例：
//
//	var s core.Store = NewMemoryStore()
//	r, err := NewRedisStore(ctx, "localhost:6379", 0)
package store
