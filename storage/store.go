package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"pawnhub/core/types"
	"pawnhub/native/pawn"
)

var (
	bucketLoans    = []byte("loans")
	bucketAccounts = []byte("accounts")
	bucketFreezes  = []byte("freezes")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyFrozen is returned when a freeze is attempted on an asset
	// already under delegation.
	ErrAlreadyFrozen = errors.New("asset already frozen")
	// ErrNotFrozen is returned when a thaw is attempted without a standing
	// freeze.
	ErrNotFrozen = errors.New("asset not frozen")
	// ErrDelegateMismatch is returned when the thawing delegate is not the
	// one the freeze was granted to.
	ErrDelegateMismatch = errors.New("thaw delegate mismatch")
)

// Store persists loan records, ledger accounts and freeze delegations in a
// single bbolt database. bbolt serializes writers, so every engine transition
// commits atomically with respect to other loans touching the same accounts.
type Store struct {
	db *bolt.DB
}

// freezeRecord tracks a standing freeze delegation for a unique asset.
type freezeRecord struct {
	Delegate [20]byte `json:"delegate"`
	Owner    [20]byte `json:"owner"`
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketLoans, bucketAccounts, bucketFreezes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PawnLoanPut persists the supplied loan record.
func (s *Store) PawnLoanPut(loan *pawn.Loan) error {
	if loan == nil {
		return fmt.Errorf("nil loan")
	}
	payload, err := json.Marshal(loan)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLoans).Put(loan.ID[:], payload)
	})
}

// PawnLoanGet loads a loan record by identifier.
func (s *Store) PawnLoanGet(id [32]byte) (*pawn.Loan, bool) {
	var loan pawn.Loan
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketLoans).Get(id[:])
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &loan); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false
	}
	return &loan, true
}

// PawnLoanDelete removes a loan record, reclaiming its storage.
func (s *Store) PawnLoanDelete(id [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLoans).Delete(id[:])
	})
}

// GetAccount loads the ledger account for addr, returning a zeroed account
// when none exists yet.
func (s *Store) GetAccount(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAccounts).Get(addr[:])
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, account)
	})
	if err != nil {
		return nil, err
	}
	return account.EnsureDefaults(), nil
}

// PutAccount persists the ledger account for addr.
func (s *Store) PutAccount(addr [20]byte, account *types.Account) error {
	payload, err := json.Marshal(account.EnsureDefaults())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put(addr[:], payload)
	})
}

// Freeze records a freeze delegation for asset: the owner of record keeps the
// asset but no transfer may move it while the delegation stands.
func (s *Store) Freeze(asset pawn.AssetID, delegate, owner [20]byte) error {
	payload, err := json.Marshal(freezeRecord{Delegate: delegate, Owner: owner})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketFreezes)
		if bucket.Get([]byte(asset)) != nil {
			return ErrAlreadyFrozen
		}
		return bucket.Put([]byte(asset), payload)
	})
}

// Thaw clears a standing freeze. Only the delegate the freeze was granted to
// may thaw.
func (s *Store) Thaw(asset pawn.AssetID, delegate, owner [20]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketFreezes)
		raw := bucket.Get([]byte(asset))
		if raw == nil {
			return ErrNotFrozen
		}
		var record freezeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		if record.Delegate != delegate {
			return ErrDelegateMismatch
		}
		return bucket.Delete([]byte(asset))
	})
}

// FrozenOwner reports the owner of record holding asset under a standing
// freeze delegation. Balance movement consults this so a frozen unit cannot
// leave its owner while the delegation stands.
func (s *Store) FrozenOwner(asset pawn.AssetID) ([20]byte, bool, error) {
	var owner [20]byte
	frozen := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketFreezes).Get([]byte(asset))
		if raw == nil {
			return nil
		}
		var record freezeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		owner = record.Owner
		frozen = true
		return nil
	})
	return owner, frozen, err
}

// Frozen reports whether asset is currently under a freeze delegation.
func (s *Store) Frozen(asset pawn.AssetID) (bool, error) {
	frozen := false
	err := s.db.View(func(tx *bolt.Tx) error {
		frozen = tx.Bucket(bucketFreezes).Get([]byte(asset)) != nil
		return nil
	})
	return frozen, err
}
