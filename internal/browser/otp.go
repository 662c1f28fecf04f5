// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package browser

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// GenerateTOTP computes an RFC 6238 time-based one-time password from a
// base32 secret, for automating two-factor login flows. digits is usually
// 6; period is usually 30s.
func GenerateTOTP(secret string, at time.Time, digits int, period time.Duration) (string, error) {
	key, err := decodeBase32Secret(secret)
	if err != nil {
		return "", xerrors.Wrap(err, "decode TOTP secret")
	}
	if digits <= 0 {
		digits = 6
	}
	if period <= 0 {
		period = 30 * time.Second
	}

	counter := uint64(at.Unix() / int64(period.Seconds()))
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	code := truncated % mod
	return fmt.Sprintf("%0*d", digits, code), nil
}

func decodeBase32Secret(secret string) ([]byte, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(secret, " ", "")))
	if pad := len(cleaned) % 8; pad != 0 {
		cleaned += strings.Repeat("=", 8-pad)
	}
	return base32.StdEncoding.DecodeString(cleaned)
}
