// Package namespace derives collection-scoped entity ids.
//
// A signed id has the form "<base>.<hmac>", where hmac is the hex HMAC-SHA1 of
// base keyed by the namespace name (the collection's foreign id). Signing a
// foreign-signed id strips the old checksum first, so an id moved between
// collections is re-signed rather than double-signed.
package namespace

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const Sep = "."

type Namespace struct {
	key []byte
}

func New(name string) *Namespace {
	return &Namespace{key: []byte(name)}
}

// Parse splits an id into its base and checksum. The checksum is empty when
// the id carries no separator.
func Parse(id string) (base, checksum string) {
	i := strings.LastIndex(id, Sep)
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+len(Sep):]
}

func (n *Namespace) signature(base string) string {
	if len(n.key) == 0 {
		return ""
	}
	mac := hmac.New(sha1.New, n.key)
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

func (n *Namespace) Sign(id string) string {
	base, _ := Parse(id)
	if len(n.key) == 0 || base == "" {
		return base
	}
	return base + Sep + n.signature(base)
}

func (n *Namespace) Verify(id string) bool {
	base, checksum := Parse(id)
	if checksum == "" || len(n.key) == 0 {
		return false
	}
	return hmac.Equal([]byte(checksum), []byte(n.signature(base)))
}
