package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	networkdefinition "nadfolio/internal/infrastructure/network/definition"
	"nadfolio/internal/pkg/utils"
)

// TokenFileLoader implements port.TokenProvider from a JSON token list. The
// file is read once; a missing file selects the built-in Monad testnet table.
type TokenFileLoader struct {
	filePath string
	logger   port.Logger

	once   sync.Once
	tokens []entity.Token
	err    error
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(filePath string, logger port.Logger) *TokenFileLoader {
	return &TokenFileLoader{filePath: filePath, logger: logger}
}

// GetTokens returns the validated token table.
func (l *TokenFileLoader) GetTokens() ([]entity.Token, error) {
	l.once.Do(func() {
		l.tokens, l.err = l.load()
	})
	if l.err != nil {
		return nil, l.err
	}
	return append([]entity.Token(nil), l.tokens...), nil
}

func (l *TokenFileLoader) load() ([]entity.Token, error) {
	if l.filePath == "" {
		l.logger.Info("No token file configured, using built-in token table")
		return validate(networkdefinition.MonadTestnetTokens(), l.logger)
	}

	tokens, err := utils.LoadJSONFile[[]entity.Token](l.filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Warn("Token file not found, using built-in token table", "path", l.filePath)
		return validate(networkdefinition.MonadTestnetTokens(), l.logger)
	case err != nil:
		return nil, fmt.Errorf("failed to load tokens from %s: %w", l.filePath, err)
	}

	valid, err := validate(tokens, l.logger)
	if err != nil {
		return nil, fmt.Errorf("token file %s: %w", l.filePath, err)
	}
	l.logger.Info("Successfully loaded tokens from file", "path", l.filePath, "count", len(valid))
	return valid, nil
}

// validate drops malformed entries and rejects tables with duplicate symbols
// or more than one native asset.
func validate(tokens []entity.Token, logger port.Logger) ([]entity.Token, error) {
	seen := make(map[string]struct{}, len(tokens))
	natives := 0
	out := make([]entity.Token, 0, len(tokens))

	for _, t := range tokens {
		t.Symbol = strings.TrimSpace(t.Symbol)
		if t.Symbol == "" {
			logger.Warn("Skipping token without symbol", "address", t.Address)
			continue
		}
		if t.IsNative || strings.EqualFold(t.Address, entity.ZeroAddress) {
			t.IsNative = true
			t.Address = entity.ZeroAddress
			natives++
		} else if err := entity.ValidateAddress(t.Address); err != nil {
			logger.Warn("Skipping token with invalid address", "symbol", t.Symbol, "error", err)
			continue
		}
		if _, dup := seen[t.SymbolKey()]; dup {
			return nil, fmt.Errorf("duplicate token symbol %q", t.Symbol)
		}
		seen[t.SymbolKey()] = struct{}{}
		out = append(out, t)
	}
	if natives > 1 {
		return nil, fmt.Errorf("token list declares %d native assets, want at most one", natives)
	}
	return out, nil
}
