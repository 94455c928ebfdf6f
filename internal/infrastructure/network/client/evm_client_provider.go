package client

import (
	"sync"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/configloader"
)

// EVMClientProvider hands out one EVMClient per network and caches it.
type EVMClientProvider struct {
	clients     map[string]*EVMClient
	mu          sync.Mutex
	logger      port.Logger
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewEVMClientProvider creates a provider using the network timeouts from cfg.
func NewEVMClientProvider(cfg *configloader.Config, logger port.Logger) *EVMClientProvider {
	return &EVMClientProvider{
		clients:     make(map[string]*EVMClient),
		logger:      logger,
		dialTimeout: configloader.Millis(cfg.Network.DialTimeoutMs),
		callTimeout: configloader.Millis(cfg.Network.RPCCallTimeoutMs),
	}
}

// GetClient returns the cached client for netDef, creating it on first use.
func (p *EVMClientProvider) GetClient(netDef entity.NetworkDefinition) port.ChainReader {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[netDef.Identifier]; ok {
		return c
	}
	p.logger.Debug("Creating EVM client", "network", netDef.Name, "rpcPrimary", netDef.PrimaryRPCURL)
	c := NewEVMClient(netDef, p.dialTimeout, p.callTimeout, p.logger)
	p.clients[netDef.Identifier] = c
	return c
}
