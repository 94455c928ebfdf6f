package port

// WalletProvider returns the wallet addresses to check in batch mode.
type WalletProvider interface {
	GetWallets() ([]string, error)
}
