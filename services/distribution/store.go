package distribution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"
)

var (
	// ErrPathRequired is returned when the claim store path is missing.
	ErrPathRequired  = errors.New("distribution: claim store path must be configured")
	// ErrPlanNotFound is returned for unknown plan ids.
	ErrPlanNotFound  = errors.New("distribution: plan not found")
	// ErrAlreadyFunded is returned when a plan already has a vault epoch.
	ErrAlreadyFunded = errors.New("distribution: plan already funded")
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    royalty_token TEXT NOT NULL,
    vault TEXT NOT NULL,
    revenue TEXT NOT NULL,
    allocated TEXT NOT NULL,
    root TEXT NOT NULL,
    epoch INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS claims (
    plan_id TEXT NOT NULL REFERENCES plans(id),
    account TEXT NOT NULL,
    balance TEXT NOT NULL,
    amount TEXT NOT NULL,
    proof TEXT NOT NULL,
    claimed INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (plan_id, account)
);
CREATE INDEX IF NOT EXISTS claims_account ON claims(account);
`

// ClaimStore persists plans and their claims in SQLite.
type ClaimStore struct {
	db *sql.DB
}

// OpenClaimStore opens (or creates) the store at path. ":memory:" gives a
// private in-memory store.
func OpenClaimStore(path string) (*ClaimStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open claim store: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &ClaimStore{db: db}, nil
}

// Close releases database resources.
func (s *ClaimStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SavePlan stores a plan and all of its claims in one transaction.
func (s *ClaimStore) SavePlan(ctx context.Context, plan *Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO plans(id, royalty_token, vault, revenue, allocated, root, epoch, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)
    `, plan.ID, plan.RoyaltyToken.Hex(), plan.Vault.Hex(), plan.Revenue.String(), plan.Allocated.String(),
		plan.Root.Hex(), plan.Epoch, plan.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	for _, c := range plan.Claims {
		proof, err := json.Marshal(c.Proof)
		if err != nil {
			return fmt.Errorf("encode proof: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO claims(plan_id, account, balance, amount, proof, claimed)
            VALUES(?, ?, ?, ?, ?, ?)
        `, plan.ID, c.Account.Hex(), c.Balance.String(), c.Amount.String(), string(proof), c.Claimed)
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
	}
	return tx.Commit()
}

// SetEpoch records the vault epoch a plan was funded as.
func (s *ClaimStore) SetEpoch(ctx context.Context, planID string, epoch uint64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET epoch = ? WHERE id = ?`, epoch, planID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// EpochRecorded reports whether some plan already owns the vault epoch.
func (s *ClaimStore) EpochRecorded(ctx context.Context, vault common.Address, epoch uint64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans WHERE vault = ? AND epoch = ?`, vault.Hex(), epoch).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query epoch owner: %w", err)
	}
	return n > 0, nil
}

// Plan loads a plan with its claims.
func (s *ClaimStore) Plan(ctx context.Context, id string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, royalty_token, vault, revenue, allocated, root, epoch, created_at
        FROM plans WHERE id = ?
    `, id)
	var (
		plan                                Plan
		royaltyToken, vault, revenue, alloc string
		root                                string
		createdMs                           int64
	)
	if err := row.Scan(&plan.ID, &royaltyToken, &vault, &revenue, &alloc, &root, &plan.Epoch, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("query plan: %w", err)
	}
	plan.RoyaltyToken = common.HexToAddress(royaltyToken)
	plan.Vault = common.HexToAddress(vault)
	plan.Root = common.HexToHash(root)
	plan.CreatedAt = time.UnixMilli(createdMs).UTC()
	var ok bool
	if plan.Revenue, ok = new(big.Int).SetString(revenue, 10); !ok {
		return nil, fmt.Errorf("decode revenue %q", revenue)
	}
	if plan.Allocated, ok = new(big.Int).SetString(alloc, 10); !ok {
		return nil, fmt.Errorf("decode allocated %q", alloc)
	}
	claims, err := s.queryClaims(ctx, `WHERE c.plan_id = ? ORDER BY c.account`, id)
	if err != nil {
		return nil, err
	}
	plan.Claims = claims
	return &plan, nil
}

// ClaimsFor returns account's claims from funded plans, newest first. With
// pendingOnly set, claims already paid out are skipped.
func (s *ClaimStore) ClaimsFor(ctx context.Context, account common.Address, pendingOnly bool) ([]Claim, error) {
	where := `WHERE c.account = ? AND p.epoch > 0`
	if pendingOnly {
		where += ` AND c.claimed = 0`
	}
	return s.queryClaims(ctx, where+` ORDER BY p.epoch DESC`, account.Hex())
}

// MarkClaimed flags the claim paid by the given vault epoch. It reports
// whether a stored claim matched.
func (s *ClaimStore) MarkClaimed(ctx context.Context, vault common.Address, epoch uint64, account common.Address) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE claims SET claimed = 1
        WHERE account = ? AND plan_id IN (SELECT id FROM plans WHERE vault = ? AND epoch = ?)
    `, account.Hex(), vault.Hex(), epoch)
	if err != nil {
		return false, fmt.Errorf("mark claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ClaimStore) queryClaims(ctx context.Context, clause string, args ...any) ([]Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.plan_id, p.vault, p.epoch, c.account, c.balance, c.amount, c.proof, c.claimed
        FROM claims c JOIN plans p ON p.id = c.plan_id
    `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()
	var out []Claim
	for rows.Next() {
		var (
			c                               Claim
			vault, account, balance, amount string
			proof                           string
		)
		if err := rows.Scan(&c.PlanID, &vault, &c.Epoch, &account, &balance, &amount, &proof, &c.Claimed); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.Vault = common.HexToAddress(vault)
		c.Account = common.HexToAddress(account)
		c.Balance, _ = new(big.Int).SetString(balance, 10)
		c.Amount, _ = new(big.Int).SetString(amount, 10)
		if err := json.Unmarshal([]byte(proof), &c.Proof); err != nil {
			return nil, fmt.Errorf("decode proof: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
