package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

const erc721ABI = `[{"inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenOfOwnerByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

const routerABI = `[{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"amountIn","type":"uint256"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC721ABI abi.ABI
	parsedRouterABI abi.ABI
	parseABIsOnce   sync.Once
)

func initParsedABIs() {
	parseABIsOnce.Do(func() {
		parsedERC20ABI = mustParseABI("ERC20", erc20ABI)
		parsedERC721ABI = mustParseABI("ERC721", erc721ABI)
		parsedRouterABI = mustParseABI("router", routerABI)
	})
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		// The ABIs are compile-time constants; failing here is a programming error.
		panic(fmt.Sprintf("failed to parse %s ABI: %v", name, err))
	}
	return parsed
}
