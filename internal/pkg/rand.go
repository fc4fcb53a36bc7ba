package pkg

import (
	cryptoRand "crypto/rand"
	"math/big"
	"strings"
)

const randAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandString 密码学安全的随机串，用作 token 的 jti
func RandString(n int) (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(randAlphabet)))
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(randAlphabet[x.Int64()])
	}
	return b.String(), nil
}
