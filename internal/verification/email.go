package verification

import (
	"fmt"
	"net/mail"
	"strings"
)

// NormalizeEmail validates addr and returns its canonical form: the local
// part untouched, the domain case-folded. Display names are rejected.
func NormalizeEmail(addr string) (string, error) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return "", fmt.Errorf("invalid email address")
	}

	at := strings.LastIndex(parsed.Address, "@")
	if at <= 0 || at == len(parsed.Address)-1 {
		return "", fmt.Errorf("invalid email address")
	}

	local := parsed.Address[:at]
	domain := strings.ToLower(parsed.Address[at+1:])
	return local + "@" + domain, nil
}
