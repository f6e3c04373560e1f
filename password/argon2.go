package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// maxCostFactor bounds how far a stored digest's parameters may exceed
	// the hasher's before Verify refuses to run it.
	maxCostFactor = 4
	algorithmID   = "argon2id"
)

// Params are the Argon2id cost parameters used for new digests.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns 64 MiB, 3 passes, 4 lanes, 16-byte salt, 32-byte key.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and checks Argon2id digests. It is safe for concurrent use.
type Hasher struct {
	params Params
	rand   io.Reader
}

type digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// New validates p and returns a Hasher.
func New(p Params) (*Hasher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p, rand: rand.Reader}, nil
}

// Validate rejects parameters below the supported floor.
func (p Params) Validate() error {
	if p.Memory < minMemoryKB {
		return fmt.Errorf("password: memory must be >= %d KiB", minMemoryKB)
	}
	if p.Time < minTimeCost {
		return errors.New("password: time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return errors.New("password: parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	}
	if p.KeyLength < minKeyLength {
		return fmt.Errorf("password: key length must be >= %d", minKeyLength)
	}
	return nil
}

// Hash derives a digest of plaintext under a fresh random salt.
//
// Plaintext bytes are used exactly as given (no Unicode normalization).
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches encoded. Malformed digests, and
// digests whose cost exceeds the hasher's parameters by more than
// maxCostFactor, yield false.
func (h *Hasher) Verify(encoded, plaintext string) bool {
	d, err := parseDigest(encoded)
	if err != nil || !h.affordable(d) {
		return false
	}

	key := argon2.IDKey([]byte(plaintext), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the hasher's. Malformed digests always need a rehash.
func (h *Hasher) NeedsRehash(encoded string) bool {
	d, err := parseDigest(encoded)
	if err != nil {
		return true
	}
	return d.memory < h.params.Memory ||
		d.time < h.params.Time ||
		d.parallelism < h.params.Parallelism ||
		uint32(len(d.key)) != h.params.KeyLength
}

func (h *Hasher) affordable(d *digest) bool {
	return uint64(d.memory) <= maxCostFactor*uint64(h.params.Memory) &&
		uint64(d.time) <= maxCostFactor*uint64(h.params.Time) &&
		uint64(d.parallelism) <= maxCostFactor*uint64(h.params.Parallelism) &&
		uint64(len(d.key)) <= maxCostFactor*uint64(h.params.KeyLength)
}

func parseDigest(encoded string) (*digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	d := &digest{}
	if err := d.parseParams(parts[3]); err != nil {
		return nil, err
	}

	if d.salt, err = decodeSegment(parts[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	if d.key, err = decodeSegment(parts[5]); err != nil || len(d.key) == 0 {
		return nil, errors.New("invalid hash")
	}
	return d, nil
}

// decodeSegment accepts both unpadded (PHC) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func (d *digest) parseParams(part string) error {
	var memorySet, timeSet, parallelismSet bool

	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			d.memory, memorySet = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			d.time, timeSet = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			d.parallelism, parallelismSet = uint8(n), true
		default:
			return errors.New("unsupported parameter")
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return errors.New("missing parameters")
	}
	return nil
}
