package config

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/strada-framework/strada/types"
)

// ConfigurationManager loads the service config once at startup and hands
// out an immutable snapshot. Reload swaps the snapshot atomically, so
// readers never see a half-applied config.
type ConfigurationManager struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      atomic.Pointer[types.ServiceConfig]
	parser      atomic.Pointer[Parser]
	configPath  string
	loader      *Loader
	loadTimeout time.Duration
}

func NewConfigurationManager(ctx context.Context, configPath string) (*ConfigurationManager, error) {
	managerCtx, cancel := context.WithCancel(ctx)

	cm := &ConfigurationManager{
		ctx:         managerCtx,
		cancel:      cancel,
		configPath:  configPath,
		loader:      NewLoader(),
		loadTimeout: 30 * time.Second,
	}

	if err := cm.Load(); err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

// NewStaticManager wraps an in-memory config, for tests and embedders that
// assemble configuration themselves.
func NewStaticManager(config *types.ServiceConfig) *ConfigurationManager {
	ctx, cancel := context.WithCancel(context.Background())
	cm := &ConfigurationManager{
		ctx:         ctx,
		cancel:      cancel,
		loader:      NewLoader(),
		loadTimeout: 30 * time.Second,
	}
	cm.config.Store(config)
	cm.parser.Store(NewParser(config))
	return cm
}

func (cm *ConfigurationManager) Load() error {
	loadCtx, cancel := context.WithTimeout(cm.ctx, cm.loadTimeout)
	defer cancel()

	config, _, err := cm.loader.LoadFromFile(loadCtx, cm.configPath)
	if err != nil {
		return types.WrapError(err, "failed to load configuration from file")
	}

	cm.config.Store(config)
	cm.parser.Store(NewParser(config))

	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.ServiceConfig {
	return cm.config.Load()
}

func (cm *ConfigurationManager) GetValue(path string, defaultValue interface{}) interface{} {
	parser := cm.parser.Load()
	if parser == nil {
		return defaultValue
	}
	return parser.GetValue(path, defaultValue)
}

func (cm *ConfigurationManager) Close() {
	cm.cancel()
}
