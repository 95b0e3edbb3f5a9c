//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"courier/errors"
)

type IUserRepository interface {
	Create(name, email, passwordHash string) (DiskUser, error)
	GetByID(id string) (DiskUser, error)
	GetByEmail(email string) (DiskUser, error)
	Exists(id string) (bool, error)
	ListExcept(id string) ([]DiskUser, error)
	SetActive(id string, active bool) error
}

// DiskUser is the repository-level representation of an account.
// IsActive is the presence flag: flipped on login/logout by the auth service,
// read-only for everything else.
type DiskUser struct {
	ID           string    `cbor:"1,keyasint"`
	Name         string    `cbor:"2,keyasint"`
	Email        string    `cbor:"3,keyasint"`
	PasswordHash string    `cbor:"4,keyasint"`
	IsActive     bool      `cbor:"5,keyasint"`
	CreatedAt    time.Time `cbor:"6,keyasint"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new account under `user:{id}` plus an `email:{email}`
// uniqueness key pointing back at the ID. Both writes share one transaction
// so a duplicate email can never half-register.
func (u *UserRepository) Create(name, email, passwordHash string) (DiskUser, error) {
	record := DiskUser{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	value, err := cbor.Marshal(record)
	if err != nil {
		return DiskUser{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("email:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, []byte(record.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(record.ID), value)
	})
	if err != nil {
		return DiskUser{}, err
	}
	return record, nil
}

func (u *UserRepository) GetByID(id string) (DiskUser, error) {
	var record DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, id, &record)
	})
	if err == badger.ErrKeyNotFound {
		return DiskUser{}, errors.ErrUnknownUser
	}
	return record, err
}

func (u *UserRepository) GetByEmail(email string) (DiskUser, error) {
	var record DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("email:" + email))
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return readUser(txn, id, &record)
	})
	if err == badger.ErrKeyNotFound {
		return DiskUser{}, errors.ErrUnknownUser
	}
	return record, err
}

func (u *UserRepository) Exists(id string) (bool, error) {
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

// ListExcept returns every account except the given one, ordered by name for
// deterministic display, ID as tie-break for homonyms.
func (u *UserRepository) ListExcept(id string) ([]DiskUser, error) {
	prefix := []byte("user:")
	var users []DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record DiskUser
				if err := cbor.Unmarshal(value, &record); err != nil {
					return err
				}
				if record.ID != id {
					users = append(users, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SetActive flips the presence flag. Read-modify-write inside a single
// transaction so concurrent logins cannot clobber other fields.
func (u *UserRepository) SetActive(id string, active bool) error {
	err := u.db.Update(func(txn *badger.Txn) error {
		var record DiskUser
		if err := readUser(txn, id, &record); err != nil {
			return err
		}
		record.IsActive = active
		value, err := cbor.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), value)
	})
	if err == badger.ErrKeyNotFound {
		return errors.ErrUnknownUser
	}
	return err
}

func readUser(txn *badger.Txn, id string, out *DiskUser) error {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, out)
	})
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}
