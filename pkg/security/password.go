// Package security holds password hashing for dashboard accounts. Hashes are
// Argon2id in the PHC string format, so parameters travel with each hash and
// can be raised without invalidating existing accounts.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
)

// MinPasswordLength is enforced on create and password change.
const MinPasswordLength = 8

// ErrInvalidHash signals a stored value that is not an Argon2id PHC string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// Unambiguous characters only: no 0/O, 1/l/I.
const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

var b64 = base64.RawStdEncoding

// ArgonParams are the cost settings recorded in each hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func paramsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(clamp(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, ErrInvalidHash
	}

	var h phc
	var parallelism uint32
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &parallelism)
	if err != nil || n != 3 || h.params.Memory == 0 || h.params.Time == 0 || parallelism == 0 || parallelism > 255 {
		return phc{}, ErrInvalidHash
	}
	h.params.Parallelism = uint8(parallelism)

	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) == 0 {
		return phc{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phc{}, ErrInvalidHash
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.key))
	return h, nil
}

func derive(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// HashPassword hashes password with the cost settings in cfg.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	h := phc{params: paramsFromConfig(cfg)}
	h.salt = make([]byte, h.params.SaltLen)
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = derive(password, h.salt, h.params)
	return h.String(), nil
}

// VerifyPassword compares in constant time. A malformed hash is an error,
// a wrong password is (false, nil).
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, derive(password, h.salt, h.params)) == 1, nil
}

// NeedsRehash reports whether encoded was made with cost settings other
// than the ones cfg asks for now. Unreadable hashes always need one.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	want := paramsFromConfig(cfg)
	have := h.params
	return have.Memory != want.Memory || have.Time != want.Time ||
		have.Parallelism != want.Parallelism || have.KeyLen != want.KeyLen
}

// GenerateTempPassword returns a random password for accounts created
// without one.
func GenerateTempPassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("length must be at least %d", MinPasswordLength)
	}
	size := big.NewInt(int64(len(tempAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		i, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(tempAlphabet[i.Int64()])
	}
	return b.String(), nil
}
