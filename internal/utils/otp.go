package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/yukikurage/brand-task-api/internal/constants"
)

// GenerateOTP returns a uniformly random code in [OTPMin, OTPMax].
func GenerateOTP() (int, error) {
	span := big.NewInt(int64(constants.OTPMax - constants.OTPMin + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return constants.OTPMin + int(n.Int64()), nil
}
