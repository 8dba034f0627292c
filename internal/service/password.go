package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// bcrypt only reads the first 72 bytes.
const maxPasswordBytes = 72

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

// hashPassword returns a validation error for over-long input and an internal
// error for any other hashing failure.
func hashPassword(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), passwordCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash password")
	}
	return string(hash), nil
}

func checkPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
