package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/services/routing"
)

// Router tuning file keys. Every key is optional; missing keys keep the
// value from the environment.
//
//	router:
//	  default_strategy: adaptive
//	  fallback_enabled: true
//	  max_retries: 2
//	  retry_delay: 250ms
//	  performance_tracking: true
//	  adaptive_learning: true
//	  history_window: 100
//	  probe_timeout: 3s
//	  weights:
//	    latency: 0.3
//	    reliability: 0.3
//	    cost: 0.2
//	    success_rate: 0.2
const routerKey = "router"

// LoadRouterFile overlays the router section of a YAML or JSON file on base
func LoadRouterFile(path string, base routing.RouterConfig) (routing.RouterConfig, error) {
	v := newRouterViper(path, base)
	if err := v.ReadInConfig(); err != nil {
		return base, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeRouter(v)
}

// WatchRouterFile reloads the file on every write and passes the decoded
// config to apply. Invalid files are logged and skipped.
func WatchRouterFile(path string, base routing.RouterConfig, apply func(routing.RouterConfig) error, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := newRouterViper(path, base)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// viper fires several events per save on most editors
	var mu sync.Mutex
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		cfg, err := decodeRouter(v)
		if err != nil {
			logger.Warn("ignoring invalid router config file", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := apply(cfg); err != nil {
			logger.Warn("router config rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("router config reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()
	return nil
}

func newRouterViper(path string, base routing.RouterConfig) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault(routerKey+".default_strategy", base.DefaultStrategy)
	v.SetDefault(routerKey+".fallback_enabled", base.FallbackEnabled)
	v.SetDefault(routerKey+".max_retries", base.MaxRetries)
	v.SetDefault(routerKey+".retry_delay", base.RetryDelay)
	v.SetDefault(routerKey+".performance_tracking", base.PerformanceTracking)
	v.SetDefault(routerKey+".adaptive_learning", base.AdaptiveLearning)
	v.SetDefault(routerKey+".history_window", base.HistoryWindow)
	v.SetDefault(routerKey+".probe_timeout", base.ProbeTimeout)
	v.SetDefault(routerKey+".weights.latency", base.Weights.Latency)
	v.SetDefault(routerKey+".weights.reliability", base.Weights.Reliability)
	v.SetDefault(routerKey+".weights.cost", base.Weights.Cost)
	v.SetDefault(routerKey+".weights.success_rate", base.Weights.SuccessRate)
	return v
}

func decodeRouter(v *viper.Viper) (routing.RouterConfig, error) {
	key := func(name string) string { return routerKey + "." + name }

	cfg := routing.RouterConfig{
		DefaultStrategy:     v.GetString(key("default_strategy")),
		FallbackEnabled:     v.GetBool(key("fallback_enabled")),
		MaxRetries:          v.GetInt(key("max_retries")),
		RetryDelay:          v.GetDuration(key("retry_delay")),
		PerformanceTracking: v.GetBool(key("performance_tracking")),
		AdaptiveLearning:    v.GetBool(key("adaptive_learning")),
		HistoryWindow:       v.GetInt(key("history_window")),
		ProbeTimeout:        v.GetDuration(key("probe_timeout")),
		Weights: routing.AdaptiveWeights{
			Latency:     v.GetFloat64(key("weights.latency")),
			Reliability: v.GetFloat64(key("weights.reliability")),
			Cost:        v.GetFloat64(key("weights.cost")),
			SuccessRate: v.GetFloat64(key("weights.success_rate")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return routing.RouterConfig{}, err
	}
	return cfg, nil
}
