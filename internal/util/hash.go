package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	gstr "github.com/savsgio/gotils/strconv"
)

// Hash will take one or more values and return a xxhash calculated value for the input
func Hash(vals ...any) string {
	h := xxhash.New()
	for i, v := range vals {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write(gstr.S2B(fmt.Sprintf("%+v", v)))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// HashJSON hashes the json form of v which is stable for pointers and nested values.
func HashJSON(v any) string {
	return fmt.Sprintf("%x", xxhash.Sum64(gstr.S2B(JSONStringify(v))))
}
