package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

var errMalformedPHC = errors.New("malformed argon2id hash")

// phc is a decoded "$argon2id$v=19$m=…,t=…,p=…$salt$key" string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

// weakerThan reports whether p was produced with lower cost or a different key size than cfg.
func (p phc) weakerThan(cfg Config) bool {
	return p.memory < cfg.Memory ||
		p.time < cfg.Time ||
		p.parallelism < cfg.Parallelism ||
		uint32(len(p.key)) != cfg.KeyLength
}

func decodePHC(s string) (phc, error) {
	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != phcAlgorithm {
		return phc{}, errMalformedPHC
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, errMalformedPHC
	}

	var out phc
	if err := decodeParams(fields[3], &out); err != nil {
		return phc{}, err
	}

	var err error
	if out.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return phc{}, errMalformedPHC
	}
	if out.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(out.key) == 0 {
		return phc{}, errMalformedPHC
	}
	return out, nil
}

// decodeParams reads exactly m, t and p, each once, each at or above the cost floor.
func decodeParams(s string, out *phc) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(s, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return errMalformedPHC
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return errMalformedPHC
			}
			out.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return errMalformedPHC
			}
			out.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return errMalformedPHC
			}
			out.parallelism = uint8(v)
		default:
			return errMalformedPHC
		}
	}
	if len(seen) != 3 {
		return errMalformedPHC
	}
	return nil
}
