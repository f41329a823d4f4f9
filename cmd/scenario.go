package main

import (
	"github.com/luca-patrignani/product-ledger/ledger"
	"github.com/luca-patrignani/product-ledger/product"
)

// catalogue is the first batch mined by the demonstration.
var catalogue = []product.Product{
	product.New("Apple iPhone 12", "Apple Inc.", "123456"),
	product.New("Samsung Galaxy S21", "Samsung Electronics", "789012"),
	product.New("Microsoft Surface Laptop 3", "Microsoft Corporation", "345678"),
	product.New("Sony PlayStation 5", "Sony Corporation", "901234"),
}

type report struct {
	Mined    []ledger.Block
	Checked  product.Product
	Verified bool
	Fakes    []product.Product
}

// runScenario mines the catalogue, verifies its first product, then commits
// that product a second time and looks for fakes.
func runScenario(bc *ledger.Blockchain) report {
	var r report

	for _, p := range catalogue {
		bc.AddProduct(p)
	}
	r.Mined = append(r.Mined, bc.MinePendingProducts())

	r.Checked = catalogue[0]
	r.Verified = bc.VerifyProduct(r.Checked)

	bc.AddProduct(catalogue[0])
	r.Mined = append(r.Mined, bc.MinePendingProducts())

	r.Fakes = bc.CheckForFakeProducts()
	return r
}
