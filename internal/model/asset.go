package model

import (
	"fmt"
	"strings"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Asset is a chain asset identifier: either the special "WAVES" token or a
// base58-encoded asset id.
type Asset string

const AssetWaves Asset = "WAVES"

func ParseAsset(id string) (Asset, error) {
	if id == string(AssetWaves) {
		return AssetWaves, nil
	}
	if len(id) < 32 || len(id) > 44 {
		return "", fmt.Errorf("invalid asset id length: %q", id)
	}
	for _, r := range id {
		if !strings.ContainsRune(base58Alphabet, r) {
			return "", fmt.Errorf("invalid asset id character %q in %q", r, id)
		}
	}
	return Asset(id), nil
}

func (a Asset) ID() string { return string(a) }

type AssetPair struct {
	AmountAsset Asset
	PriceAsset  Asset
}

func (p AssetPair) String() string {
	return string(p.AmountAsset) + "/" + string(p.PriceAsset)
}

// Address is a base58-encoded chain account address.
type Address string

func ParseAddress(s string) (Address, error) {
	if len(s) < 30 || len(s) > 44 {
		return "", fmt.Errorf("invalid address length: %q", s)
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return "", fmt.Errorf("invalid address character %q in %q", r, s)
		}
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }
