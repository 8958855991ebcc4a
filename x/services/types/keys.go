package types

import "fmt"

const (
	// ModuleName defines the module name
	ModuleName = "services"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// RouterKey is the message route for services
	RouterKey = ModuleName

	// QuerierRoute defines the module's query routing key
	QuerierRoute = ModuleName

	// DefaultNativeDenom is the bank denom backing the native asset.
	DefaultNativeDenom = "utnt"

	// CustomAssetDenomPrefix prefixes the bank denom of every registered custom asset id.
	CustomAssetDenomPrefix = "asset/"
)

// CustomAssetDenom returns the bank denom that holds balances of a registered asset id.
func CustomAssetDenom(id uint64) string {
	return fmt.Sprintf("%s%d", CustomAssetDenomPrefix, id)
}
