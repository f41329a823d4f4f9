package ledger

import (
	"fmt"
	"hash"
	"io"
	"log/slog"
	"sync"

	"github.com/luca-patrignani/product-ledger/product"
)

// Blockchain maintains the committed chain of blocks and the staging buffer
// of products waiting to be mined.
type Blockchain struct {
	mu     sync.RWMutex // Protects blocks
	blocks []Block      // Never empty, blocks[i].Index == i

	pendingMu sync.Mutex       // Protects pending, always taken after mu
	pending   []product.Fields // Canonical form of the staged products

	clock     Clock
	newHasher func() hash.Hash
	logger    *slog.Logger
}

type options struct {
	clock     Clock
	newHasher func() hash.Hash
	logger    *slog.Logger
}

// Option configures a Blockchain.
type Option func(options) options

// WithClock sets the source of block timestamps. The default is SystemClock.
func WithClock(clock Clock) Option {
	return func(o options) options {
		o.clock = clock
		return o
	}
}

// WithHasher sets the hash function used to seal blocks. The default is
// DefaultHasher. A chain built with a custom hasher can only be checked by
// its own Verify, not by Block.ComputeHash.
func WithHasher(newHasher func() hash.Hash) Option {
	return func(o options) options {
		o.newHasher = newHasher
		return o
	}
}

// WithLogger sets the logger that receives a debug record per mined block.
func WithLogger(logger *slog.Logger) Option {
	return func(o options) options {
		o.logger = logger
		return o
	}
}

// NewBlockchain creates a blockchain holding only the genesis block: index
// 0, no products and previous hash "0".
func NewBlockchain(opts ...Option) *Blockchain {
	o := options{
		clock:     SystemClock,
		newHasher: DefaultHasher,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		o = opt(o)
	}

	bc := &Blockchain{
		clock:     o.clock,
		newHasher: o.newHasher,
		logger:    o.logger,
	}
	bc.blocks = []Block{bc.createGenesisBlock()}
	return bc
}

func (bc *Blockchain) createGenesisBlock() Block {
	return newBlock(0, bc.clock.Now(), []product.Fields{}, GenesisPreviousHash, bc.newHasher)
}

// GetLatest returns the most recently mined block.
// ErrEmptyChain is returned only if the non-empty invariant has been broken.
func (bc *Blockchain) GetLatest() (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}
	return bc.blocks[len(bc.blocks)-1].clone(), nil
}

// GetByIndex returns a copy of the block at the given index.
func (bc *Blockchain) GetByIndex(index int) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		return Block{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(bc.blocks))
	}
	return bc.blocks[index].clone(), nil
}

// Len returns the number of committed blocks, genesis included.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return len(bc.blocks)
}

// Blocks returns a copy of the committed chain.
func (bc *Blockchain) Blocks() []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	out := make([]Block, len(bc.blocks))
	for i, b := range bc.blocks {
		out[i] = b.clone()
	}
	return out
}

// AddProduct stages a product for the next block. It does not touch the
// committed chain and never blocks on readers.
func (bc *Blockchain) AddProduct(p product.Product) {
	bc.pendingMu.Lock()
	defer bc.pendingMu.Unlock()

	bc.pending = append(bc.pending, p.Fields())
}

// Pending returns the staged products in insertion order.
func (bc *Blockchain) Pending() []product.Product {
	bc.pendingMu.Lock()
	defer bc.pendingMu.Unlock()

	out := make([]product.Product, len(bc.pending))
	for i, f := range bc.pending {
		out[i] = product.FromFields(f)
	}
	return out
}

// MinePendingProducts seals the staged products into a new block linked to
// the latest one, appends it and clears the staging buffer. A block is mined
// even when nothing is staged. The whole transition is atomic for readers
// and for concurrent AddProduct calls. A copy of the new block is returned.
func (bc *Blockchain) MinePendingProducts() Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pendingMu.Lock()
	defer bc.pendingMu.Unlock()

	timestamp := bc.clock.Now()
	block := newBlock(len(bc.blocks), timestamp, bc.pending, bc.latest().Hash, bc.newHasher)
	bc.pending = nil
	bc.blocks = append(bc.blocks, block)

	bc.logger.Debug("block mined",
		"index", block.Index,
		"products", len(block.Products),
		"hash", block.Hash,
		"previous_hash", block.PreviousHash,
	)
	return block.clone()
}

// latest must be called with mu held.
func (bc *Blockchain) latest() Block {
	if len(bc.blocks) == 0 {
		panic(ErrEmptyChain)
	}
	return bc.blocks[len(bc.blocks)-1]
}

// VerifyProduct reports whether p has been committed in any block. Staged
// products are not taken into account.
func (bc *Blockchain) VerifyProduct(p product.Product) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	for _, block := range bc.blocks {
		for _, f := range block.Products {
			if product.FromFields(f).Equal(p) {
				return true
			}
		}
	}
	return false
}

// CheckForFakeProducts returns every distinct product committed at least
// twice across the whole chain, in the order of first appearance. Staged
// products are not taken into account. The result is never nil.
func (bc *Blockchain) CheckForFakeProducts() []product.Product {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	order, counts := bc.occurrences()
	fakes := make([]product.Product, 0)
	for _, p := range order {
		if counts[p.Key()] > 1 {
			fakes = append(fakes, p)
		}
	}
	return fakes
}

// CountFakeProducts returns len(CheckForFakeProducts()) without building the
// product list.
func (bc *Blockchain) CountFakeProducts() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	_, counts := bc.occurrences()
	n := 0
	for _, c := range counts {
		if c > 1 {
			n++
		}
	}
	return n
}

// occurrences must be called with mu held. It returns the distinct committed
// products in order of first appearance and how many times each one occurs.
func (bc *Blockchain) occurrences() ([]product.Product, map[product.Key]int) {
	var order []product.Product
	counts := make(map[product.Key]int)
	for _, block := range bc.blocks {
		for _, f := range block.Products {
			p := product.FromFields(f)
			k := p.Key()
			if counts[k] == 0 {
				order = append(order, p)
			}
			counts[k]++
		}
	}
	return order, counts
}

// Verify validates the integrity of the entire chain: the genesis block, the
// index continuity, the previous hash linkage and every block hash. The
// returned error wraps ErrIntegrity and describes the first violation.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return ErrEmptyChain
	}

	genesis := bc.blocks[0]
	if genesis.Index != 0 || genesis.PreviousHash != GenesisPreviousHash {
		return fmt.Errorf("%w: invalid genesis block", ErrIntegrity)
	}
	if err := bc.validateHash(genesis); err != nil {
		return fmt.Errorf("block 0 invalid: %w", err)
	}

	for i := 1; i < len(bc.blocks); i++ {
		if err := bc.validateBlock(bc.blocks[i], bc.blocks[i-1]); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

// validateBlock verifies that a block is valid relative to the previous block.
func (bc *Blockchain) validateBlock(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("%w: invalid index: expected %d, got %d", ErrIntegrity, previous.Index+1, current.Index)
	}
	if current.PreviousHash != previous.Hash {
		return fmt.Errorf("%w: invalid prev hash: expected %s, got %s", ErrIntegrity, previous.Hash, current.PreviousHash)
	}
	return bc.validateHash(current)
}

func (bc *Blockchain) validateHash(b Block) error {
	expected, err := b.digest(bc.newHasher)
	if err != nil {
		return fmt.Errorf("failed to calculate hash: %w", err)
	}
	if b.Hash != expected {
		return fmt.Errorf("%w: invalid hash: expected %s, got %s", ErrIntegrity, expected, b.Hash)
	}
	return nil
}
