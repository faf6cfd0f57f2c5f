package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeLength = 6

// CodeGenerator produces the numeric codes. Swappable in tests.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator draws uniform 6-digit codes from crypto/rand. The
// source design used a plain PRNG; the hardened rewrite does not.
type RandomCodeGenerator struct{}

func (RandomCodeGenerator) Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
