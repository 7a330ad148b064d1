// Package merkle implements the sorted-pair keccak tree used for dividend
// claims. Leaves follow the OpenZeppelin standard tree layout, so roots and
// proofs interoperate with its off-chain tooling:
//
//	leaf = keccak256(keccak256(abi.encode(address, uint256)))
//	node = keccak256(min(a, b) || max(a, b))
package merkle

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	errNoLeaves      = errors.New("merkle: no leaves")
	errInvalidAmount = errors.New("merkle: amount must be an unsigned 256-bit integer")
	errDuplicateLeaf = errors.New("merkle: duplicate leaf")
)

// LeafHash encodes (account, amount) as two 32-byte words and double hashes
// them.
func LeafHash(account common.Address, amount *big.Int) (common.Hash, error) {
	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, errInvalidAmount
	}
	word, overflow := uint256.FromBig(amount)
	if overflow {
		return common.Hash{}, errInvalidAmount
	}
	encoded := make([]byte, 64)
	copy(encoded[12:32], account.Bytes())
	amountBytes := word.Bytes32()
	copy(encoded[32:], amountBytes[:])
	inner := ethcrypto.Keccak256(encoded)
	return common.BytesToHash(ethcrypto.Keccak256(inner)), nil
}

// HashPair hashes two nodes in ascending byte order so the result does not
// depend on which side each sibling sat.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return ethcrypto.Keccak256Hash(a[:], b[:])
}

// ProcessProof folds the proof into leaf and returns the implied root.
func ProcessProof(proof []common.Hash, leaf common.Hash) common.Hash {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed
}

// Verify reports whether proof links leaf to root.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	return ProcessProof(proof, leaf) == root
}

// Claim is one (account, amount) entry of a distribution.
type Claim struct {
	Account common.Address
	Amount  *big.Int
}

// Tree is a built distribution tree. Leaves are sorted by hash and an odd
// node at any level is promoted unchanged, which keeps roots independent of
// input order.
type Tree struct {
	levels [][]common.Hash
	index  map[common.Hash]int
}

// Build hashes the claims and assembles the tree.
func Build(claims []Claim) (*Tree, error) {
	if len(claims) == 0 {
		return nil, errNoLeaves
	}
	leaves := make([]common.Hash, 0, len(claims))
	seen := make(map[common.Hash]struct{}, len(claims))
	for _, c := range claims {
		leaf, err := LeafHash(c.Account, c.Amount)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[leaf]; dup {
			return nil, errDuplicateLeaf
		}
		seen[leaf] = struct{}{}
		leaves = append(leaves, leaf)
	}
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i][:], leaves[j][:]) < 0 })

	tree := &Tree{index: make(map[common.Hash]int, len(leaves))}
	for i, leaf := range leaves {
		tree.index[leaf] = i
	}
	level := leaves
	tree.levels = append(tree.levels, level)
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		tree.levels = append(tree.levels, next)
		level = next
	}
	return tree, nil
}

// Root returns the committed root.
func (t *Tree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int { return len(t.levels[0]) }

// Proof returns the sibling path for leaf, or false when the leaf is not in
// the tree.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, bool) {
	pos, ok := t.index[leaf]
	if !ok {
		return nil, false
	}
	proof := make([]common.Hash, 0, len(t.levels))
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof, true
}

// ProofFor is a convenience wrapper hashing the claim first.
func (t *Tree) ProofFor(account common.Address, amount *big.Int) ([]common.Hash, bool) {
	leaf, err := LeafHash(account, amount)
	if err != nil {
		return nil, false
	}
	return t.Proof(leaf)
}
