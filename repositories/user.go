//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chat-relay/errors"
)

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level account record. The relay core only ever
// sees the (ID, Username) projection of it.
type User struct {
	ID           string   `cbor:"1,keyasint"`
	Username     string   `cbor:"2,keyasint"`
	Email        string   `cbor:"3,keyasint"`
	PasswordHash string   `cbor:"4,keyasint"`
	Roles        []string `cbor:"5,keyasint"`
	CreatedAt    int64    `cbor:"6,keyasint"`
}

func idKey(id string) []byte       { return []byte("acct:id:" + id) }
func emailKey(email string) []byte { return []byte("acct:email:" + email) }

// CreateUser persists a new account under its generated ID and indexes
// it by email. The email index stores only the ID so renames of the
// record never fork the two keys.
func (u UserRepository) CreateUser(username, email, hashedPassword string) (User, error) {
	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().Unix(),
	}

	data, err := cbor.Marshal(user)
	if err != nil {
		return User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey(email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(idKey(user.ID), data)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return User{}, errors.ErrUserNotFound
	}
	return u.GetUserByID(id)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return User{}, errors.ErrUserNotFound
	}
	return user, nil
}
