package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// nonceSource hands out strictly increasing millisecond nonces.
type nonceSource struct {
	mu   sync.Mutex
	last int64
}

func (n *nonceSource) next(now time.Time) string {
	v := now.UnixMilli()
	n.mu.Lock()
	if v <= n.last {
		v = n.last + 1
	}
	n.last = v
	n.mu.Unlock()
	return strconv.FormatInt(v, 10)
}

// sign computes the Authent header:
//
//	base64(HMAC-SHA512(base64decode(secret), SHA256(postData + nonce + endpointPath)))
//
// endpointPath excludes the "/derivatives" prefix.
func sign(secret, endpointPath, nonce, postData string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	endpointPath = strings.TrimPrefix(endpointPath, "/derivatives")

	sum := sha256.Sum256([]byte(postData + nonce + endpointPath))
	mac := hmac.New(sha512.New, key)
	mac.Write(sum[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
