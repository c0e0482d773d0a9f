package utils

import "golang.org/x/crypto/bcrypt"

// HashOTP returns a bcrypt hash of the provided one-time code. Codes are
// stored hashed so a leaked database row does not expose a live code.
func HashOTP(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckOTP compares a stored OTP hash with a submitted code.
func CheckOTP(hashedCode, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code)) == nil
}
