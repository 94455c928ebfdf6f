package walletloader

import (
	"fmt"
	"strings"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/pkg/utils"
)

// WalletFileLoader implements the port.WalletProvider interface by loading
// wallets from a text file, one address per line.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewWalletFileLoader creates a new WalletFileLoader.
func NewWalletFileLoader(filePath string, logger port.Logger) *WalletFileLoader {
	return &WalletFileLoader{filePath: filePath, logger: logger}
}

// GetWallets reads wallet addresses from the configured file. Invalid lines
// are skipped; duplicates are returned once.
func (l *WalletFileLoader) GetWallets() ([]string, error) {
	lines, err := utils.ReadLines(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file %s: %w", l.filePath, err)
	}

	seen := make(map[string]struct{}, len(lines))
	wallets := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := entity.ValidateAddress(line.Text); err != nil {
			l.logger.Warn("Skipping invalid wallet address", "file", l.filePath, "line_number", line.Number, "error", err)
			continue
		}
		key := entity.NormalizeAddress(line.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		wallets = append(wallets, line.Text)
	}

	l.logger.Info("Wallets loaded successfully from file", "count", len(wallets), "path", l.filePath)
	return wallets, nil
}

// GetWalletByAddress reports whether address is listed in the wallet file.
func (l *WalletFileLoader) GetWalletByAddress(address string) (string, error) {
	wallets, err := l.GetWallets()
	if err != nil {
		return "", fmt.Errorf("failed to load wallets when searching by address '%s': %w", address, err)
	}
	for _, w := range wallets {
		if strings.EqualFold(w, address) {
			return w, nil
		}
	}
	return "", fmt.Errorf("wallet with address %s not found in %s", address, l.filePath)
}
