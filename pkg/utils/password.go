package utils

import "golang.org/x/crypto/bcrypt"

// PasswordHasher 密码单向哈希；create / reset / change 统一走同一实现
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Compare(hashed, pw string) bool
}

type BcryptHasher struct{ Cost int }

func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hashed, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
