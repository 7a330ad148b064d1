package ipnft

import "github.com/ethereum/go-ethereum/common"

// Kind tags IP-NFT registries in the contract registry.
const Kind = "ipnft"

// URIScheme prefixes metadata pointers in token URIs.
const URIScheme = "ipfs://"

// Registry is the persisted header of an IP-NFT collection.
type Registry struct {
	Address     common.Address
	Owner       common.Address
	NextTokenID uint64
	CreatedAt   uint64
}

// Invention anchors one invention's metadata and royalty token.
type Invention struct {
	TokenID         uint64
	Owner           common.Address
	MetadataPointer string
	RoyaltyToken    common.Address
	MintedAt        uint64
}
