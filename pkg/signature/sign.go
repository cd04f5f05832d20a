package signature

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrymomot/hookrelay/pkg/secrets"
)

// Sign builds the signature header value for one outbound attempt:
// space-joined "<version>,<base64(sig)>" tokens, one per key, in the order
// the keys are supplied. Callers pass the current key first followed by
// rotated keys oldest to newest so verifiers tolerate rotation.
//
// The signed string is "<msgID>.<timestamp>.<body>" with timestamp in unix
// seconds.
func Sign(enc secrets.Encryption, msgID string, timestamp int64, body []byte, keys []Secret) (string, error) {
	toSign := []byte(fmt.Sprintf("%s.%d.%s", msgID, timestamp, body))

	tokens := make([]string, 0, len(keys))
	for _, key := range keys {
		sig, err := key.sign(enc, toSign)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, key.Version()+","+base64.StdEncoding.EncodeToString(sig))
	}

	return strings.Join(tokens, " "), nil
}
