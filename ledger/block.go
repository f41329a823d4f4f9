package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"
	"time"
	"unicode/utf8"

	"go.dedis.ch/kyber/v4/suites"

	"github.com/luca-patrignani/product-ledger/product"
)

// GenesisPreviousHash is the previous hash of the genesis block. It is a
// sentinel, not a real digest.
const GenesisPreviousHash = "0"

// Blocks are hashed with the hash factory of the suite looked up by name,
// which is SHA-256 for Ed25519.
var suite suites.Suite = suites.MustFind("Ed25519")

// DefaultHasher returns the SHA-256 hash of the Ed25519 suite.
func DefaultHasher() hash.Hash {
	return suite.Hash()
}

// Block is a sealed batch of products. Hash covers every other field.
type Block struct {
	Index        int              `json:"index"`
	Timestamp    time.Time        `json:"timestamp"`
	Products     []product.Fields `json:"products"`
	PreviousHash string           `json:"previous_hash"`
	Hash         string           `json:"hash"`
}

// canonicalBlock fixes the serialization that is hashed. Fields are declared
// in lexicographic order of their JSON names and Hash is left out.
type canonicalBlock struct {
	Index        int              `json:"index"`
	PreviousHash string           `json:"previous_hash"`
	Products     []product.Fields `json:"products"`
	Timestamp    json.Number      `json:"timestamp"`
}

// NewBlock builds a block and computes its hash with DefaultHasher. The
// products slice is copied and the timestamp is truncated to microseconds,
// the precision of the canonical form.
func NewBlock(index int, timestamp time.Time, products []product.Fields, previousHash string) Block {
	return newBlock(index, timestamp, products, previousHash, DefaultHasher)
}

func newBlock(index int, timestamp time.Time, products []product.Fields, previousHash string, newHasher func() hash.Hash) Block {
	b := Block{
		Index:        index,
		Timestamp:    timestamp.Truncate(time.Microsecond).UTC(),
		Products:     copyProducts(products),
		PreviousHash: previousHash,
	}
	h, err := b.digest(newHasher)
	if err != nil {
		// Only strings and integers are encoded, json.Marshal cannot fail on them.
		panic(fmt.Sprintf("ledger: hash block %d: %v", index, err))
	}
	b.Hash = h
	return b
}

// CanonicalBytes returns the deterministic serialization of the block that
// its hash is computed from:
//
//	{"index":1,"previous_hash":"..","products":[{"manufacturer":"..","name":"..","serial_number":".."}],"timestamp":1700000000.123456}
//
// Keys are sorted, there is no insignificant whitespace and the timestamp is
// Unix seconds with exactly six decimals. Strings go through escapeString
// first, since encoding/json folds invalid UTF-8 into U+FFFD.
func (b Block) CanonicalBytes() ([]byte, error) {
	products := make([]product.Fields, len(b.Products))
	for i, f := range b.Products {
		products[i] = product.Fields{
			Manufacturer: escapeString(f.Manufacturer),
			Name:         escapeString(f.Name),
			SerialNumber: escapeString(f.SerialNumber),
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(canonicalBlock{
		Index:        b.Index,
		PreviousHash: escapeString(b.PreviousHash),
		Products:     products,
		Timestamp:    json.Number(formatTimestamp(b.Timestamp)),
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ComputeHash recomputes the block hash from its fields with DefaultHasher.
// For an untampered block the result equals Hash.
func (b Block) ComputeHash() string {
	h, err := b.digest(DefaultHasher)
	if err != nil {
		return ""
	}
	return h
}

func (b Block) digest(newHasher func() hash.Hash) (string, error) {
	data, err := b.CanonicalBytes()
	if err != nil {
		return "", err
	}
	hasher := newHasher()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (b Block) clone() Block {
	b.Products = copyProducts(b.Products)
	return b
}

func copyProducts(products []product.Fields) []product.Fields {
	out := make([]product.Fields, len(products))
	copy(out, products)
	return out
}

// escapeString maps every string to valid UTF-8 injectively: a backslash
// becomes \\ and each byte that is not part of a valid UTF-8 sequence
// becomes \xNN. Other characters are kept as they are.
func escapeString(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		case r == '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	return sb.String()
}

func formatTimestamp(t time.Time) string {
	micros := t.UnixMicro()
	sign := ""
	if micros < 0 {
		sign = "-"
		micros = -micros
	}
	return fmt.Sprintf("%s%d.%06d", sign, micros/1_000_000, micros%1_000_000)
}
