package networkdefinition

import (
	"fmt"
	"strings"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
)

// Known network definitions.
var ( //nolint:gochecknoglobals // Global for definitions
	MonadTestnet = entity.NetworkDefinition{
		ChainID:      41454,
		Name:         "Monad Testnet",
		Identifier:   "monad-testnet",
		NativeSymbol: "MON",
		Decimals:     18,
		// ankr answers first in most regions, the official endpoint is the most complete.
		PrimaryRPCURL:    "https://rpc.ankr.com/monad_testnet",
		FallbackRPCURLs:  []string{"https://testnet-rpc.monad.xyz", "https://monad-testnet.drpc.org"},
		BlockExplorerURL: "https://testnet.monadexplorer.com",
	}
)

// NetworkDefinitionProvider resolves the network the service is tracking.
type NetworkDefinitionProvider struct {
	logger  port.Logger
	all     map[string]entity.NetworkDefinition
	tracked entity.NetworkDefinition
}

// NewNetworkDefinitionProvider selects the tracked network by identifier and,
// when rpcURLs is not empty, replaces its endpoints with the configured ones
// (first entry primary, the rest fallbacks in order).
func NewNetworkDefinitionProvider(logger port.Logger, identifier string, rpcURLs []string) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{
		logger: logger,
		all: map[string]entity.NetworkDefinition{
			MonadTestnet.Identifier: MonadTestnet,
		},
	}

	if identifier == "" {
		identifier = MonadTestnet.Identifier
	}
	def, ok := p.all[strings.ToLower(identifier)]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", identifier)
	}

	if len(rpcURLs) > 0 {
		def.PrimaryRPCURL = rpcURLs[0]
		def.FallbackRPCURLs = append([]string(nil), rpcURLs[1:]...)
		logger.Debug("RPC endpoints overridden from configuration", "network", def.Identifier, "count", len(rpcURLs))
	}
	p.tracked = def

	logger.Info("Tracking network", "network", def.Name, "chainId", def.ChainID, "rpcPrimary", def.PrimaryRPCURL)
	return p, nil
}

// Tracked returns the network the portfolio is read from.
func (p *NetworkDefinitionProvider) Tracked() entity.NetworkDefinition {
	return p.tracked
}

// GetNetworkDefinitionByName returns a known definition by identifier.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	def, ok := p.all[strings.ToLower(identifier)]
	return def, ok
}

// GetNetworkDefinitionByChainID returns a known definition by chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	for _, def := range p.all {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
