// ratingd 评分预测服务。
//
// 启动顺序：配置 -> 日志 -> 模型产物 -> 数据源 -> 审计规则 -> 编排器 -> HTTP。
// 模型加载失败直接退出，不会以降级状态提供服务。
//
//	ratingd -config /etc/ratingkit/config.yaml
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/ratingkit/api"
	"github.com/rushteam/ratingkit/config"
	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/model"
	"github.com/rushteam/ratingkit/pkg/dsl"
	"github.com/rushteam/ratingkit/pkg/logging"
	"github.com/rushteam/ratingkit/pkg/metrics"
	"github.com/rushteam/ratingkit/predict"
	"github.com/rushteam/ratingkit/server"
	"github.com/rushteam/ratingkit/source"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to $RATINGKIT_CONFIG, ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Model.LoadTimeout)
	bundle, err := model.NewLoader(cfg.Model.LoadTimeout).LoadBundle(loadCtx, cfg.Model.Artifact)
	cancel()
	if err != nil {
		logging.Fatal().Err(err).Str("artifact", cfg.Model.Artifact).Msg("failed to load model")
	}
	backend := bundle.Regressor.Name()
	metrics.ModelLoaded.WithLabelValues(backend, bundle.Version).Set(1)
	logging.Info().
		Str("artifact", cfg.Model.Artifact).
		Str("version", bundle.Version).
		Str("backend", backend).
		Msg("model loaded")

	sources, databases, err := buildSources(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create data sources")
	}

	auditor, err := dsl.NewAuditor(cfg.Audit.Rules)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to compile audit rules")
	}

	assembler, err := predict.NewAssembler(bundle.Encoder, bundle.Regressor)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create assembler")
	}
	predictor, err := predict.NewPredictor(assembler, sources, predict.WithAuditor(auditor))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create predictor")
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Predictor:    predictor,
		Model:        bundle,
		ModelVersion: bundle.Version,
		ModelBackend: backend,
		Databases:    databases,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create handler")
	}
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitEnabled:   cfg.RateLimit.Enabled,
		RateLimitRequests:  cfg.RateLimit.Requests,
		RateLimitWindow:    cfg.RateLimit.Window,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	sup := server.NewSupervisor("ratingd", server.SupervisorConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	sup.Add(server.NewHTTPService("http-server", httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", httpServer.Addr).
		Strs("variants", variantNames(predictor.Variants())).
		Int("audit_rules", auditor.Len()).
		Msg("server starting")

	if err := server.Run(ctx, sup); err != nil {
		logging.Error().Err(err).Msg("supervisor stopped with error")
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := bundle.Close(closeCtx); err != nil {
		logging.Warn().Err(err).Msg("failed to close model")
	}
	logging.Info().Msg("server stopped")
}

// buildSources 为配置了 base_url 的存储创建数据源，同时返回 /health 展示的存储地址
func buildSources(cfg *config.Config) ([]core.DataSource, map[string]string, error) {
	var sources []core.DataSource
	databases := make(map[string]string, 2)
	for _, s := range []struct {
		key     string
		variant core.Variant
		cfg     source.Config
	}{
		{"sql", core.VariantSQL, cfg.Sources.SQL},
		{"nosql", core.VariantDocument, cfg.Sources.NoSQL},
	} {
		if s.cfg.BaseURL == "" {
			continue
		}
		ds, err := source.New(s.variant, s.cfg, nil)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, ds)
		databases[s.key] = s.cfg.BaseURL
	}
	return sources, databases, nil
}

func variantNames(vs []core.Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
