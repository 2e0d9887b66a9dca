package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/store"
)

// maxArtifactSize 产物最大字节数，防止误读超大文件
const maxArtifactSize = 64 << 20

// Loader 从文件、HTTP 接口或 Redis 加载模型产物。
//
// 用法：
//
//	loader := model.NewLoader(10 * time.Second)
//	bundle, err := loader.LoadBundle(ctx, "redis://localhost:6379/0/models/rating")
type Loader struct {
	client *http.Client

	// openStore 根据 redis:// 地址打开存储，测试中可替换
	openStore func(ctx context.Context, loc *store.RedisLocation) (core.Store, error)
}

// NewLoader 创建产物加载器，timeout 作用于 HTTP 下载
func NewLoader(timeout time.Duration) *Loader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		client:    &http.Client{Timeout: timeout},
		openStore: openRedisStore,
	}
}

// NewLoaderWithClient 使用自定义 HTTP 客户端创建加载器
func NewLoaderWithClient(client *http.Client) *Loader {
	return &Loader{client: client, openStore: openRedisStore}
}

func openRedisStore(ctx context.Context, loc *store.RedisLocation) (core.Store, error) {
	return store.NewRedisStore(ctx, loc.Addr, loc.DB)
}

// Load 按地址前缀选择来源并解析产物
//   - http:// / https:// -> HTTP GET
//   - redis://host:port/db/key -> Redis GET
//   - 其他 -> 本地文件
func (l *Loader) Load(ctx context.Context, location string) (*Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		data, err = l.loadHTTP(ctx, location)
	case strings.HasPrefix(location, "redis://"):
		data, err = l.loadRedis(ctx, location)
	default:
		data, err = loadFile(location)
	}
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeInternalError,
			fmt.Sprintf("load model artifact from %s", location), err)
	}
	return Decode(data)
}

// LoadBundle 加载并构建可用于推理的 Bundle
func (l *Loader) LoadBundle(ctx context.Context, location string) (*Bundle, error) {
	a, err := l.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	return a.Build()
}

// LoadFromStore 从任意 core.Store 读取产物
func LoadFromStore(ctx context.Context, s core.Store, key string) (*Artifact, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s get %q: %w", s.Name(), key, err)
	}
	return Decode(data)
}

func loadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxArtifactSize))
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status=%d, body=%s", resp.StatusCode, string(body))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
}

func (l *Loader) loadRedis(ctx context.Context, location string) ([]byte, error) {
	loc, err := store.ParseRedisURL(location)
	if err != nil {
		return nil, err
	}
	s, err := l.openStore(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Get(ctx, loc.Key)
}
