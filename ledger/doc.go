// Package ledger implements an append-only, tamper-evident ledger of product
// records used to spot duplicated (potentially counterfeit) products.
//
// # Core Components
//
// Blockchain: the ordered sequence of committed blocks plus a staging buffer
// of products that have not been mined yet.
//
// Block: an immutable batch of products bound to its position in the chain
// and to the hash of its predecessor.
//
// # Security Properties
//
// The ledger provides:
//   - Tamper detection: every block hash covers its index, timestamp,
//     products and previous hash, so any modification breaks the chain
//   - Duplicate detection: a product identity committed more than once
//     anywhere in the history is reported as a fake
//
// Only committed history counts: products still waiting in the staging
// buffer are neither verifiable nor reported as duplicates.
//
// # Usage
//
// Create a blockchain, add products and call MinePendingProducts to seal
// them into a block. VerifyProduct and CheckForFakeProducts can be called at
// any time, concurrently with writers; Verify checks the integrity of the
// whole chain.
package ledger
