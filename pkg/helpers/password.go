package helpers

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	return HashPasswordWithCost(plain, bcrypt.DefaultCost)
}

// HashPasswordWithCost hashes with an explicit bcrypt cost; out-of-range costs fall back to the default.
func HashPasswordWithCost(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// BcryptHasher returns a hashing func bound to cost, usable as a builder hasher.
func BcryptHasher(cost int) func(string) (string, error) {
	return func(plain string) (string, error) {
		return HashPasswordWithCost(plain, cost)
	}
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
