// Package audit exposes a read-only HTTP view of a product ledger for
// external display and audit tooling.
//
// # Endpoints
//
//	GET  /healthz               liveness check
//	GET  /chain                 length and every committed block
//	GET  /chain/latest          most recent block
//	GET  /chain/blocks/{index}  block by index
//	GET  /chain/verify          integrity check of the whole chain
//	POST /products/verify       whether a product has been committed
//	GET  /products/fakes        products committed more than once
//	GET  /metrics               Prometheus metrics
//
// Nothing in this package mutates the ledger: products are added and mined
// by the owner of the Blockchain only.
package audit
