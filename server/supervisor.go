package server

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/rushteam/ratingkit/pkg/logging"
)

// SupervisorConfig 监督树参数，零值取 suture 默认值
type SupervisorConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultSupervisorConfig 默认参数
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// NewSupervisor 创建根监督者，事件写入 zerolog
func NewSupervisor(name string, cfg SupervisorConfig) *suture.Supervisor {
	def := DefaultSupervisorConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	return suture.New(name, suture.Spec{
		EventHook:        logEvent,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

func logEvent(e suture.Event) {
	l := logging.WithComponent("supervisor")
	ev := l.Info()
	switch e.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
		ev = l.Error()
	case suture.EventTypeBackoff, suture.EventTypeStopTimeout:
		ev = l.Warn()
	}
	ev.Fields(e.Map()).Msg(e.String())
}

// Run 启动监督树并阻塞到 ctx 取消。正常关闭返回 nil。
func Run(ctx context.Context, sup *suture.Supervisor) error {
	err := sup.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
