// Package product defines the identity record stored on the ledger: a
// physical item identified by its name, manufacturer and serial number.
package product

import (
	"encoding/json"
	"fmt"
)

// Product is an immutable product identity. The zero value is a product with
// three empty fields, which is a valid identity.
type Product struct {
	name         string
	manufacturer string
	serialNumber string
}

// Key is the composite key of a Product. Two products have the same Key if and
// only if they are Equal, so it can be used directly as a map key.
type Key struct {
	Name         string
	Manufacturer string
	SerialNumber string
}

// Fields is the canonical representation of a Product. The fields are
// declared in lexicographic order of their JSON names, which makes the
// encoding/json output of a Fields value canonical.
type Fields struct {
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
}

// New returns a Product. No validation is performed, empty strings included.
func New(name, manufacturer, serialNumber string) Product {
	return Product{
		name:         name,
		manufacturer: manufacturer,
		serialNumber: serialNumber,
	}
}

// FromFields rebuilds a Product from its canonical representation.
func FromFields(f Fields) Product {
	return New(f.Name, f.Manufacturer, f.SerialNumber)
}

// Name returns the product name.
func (p Product) Name() string { return p.name }

// Manufacturer returns the name of the product's manufacturer.
func (p Product) Manufacturer() string { return p.manufacturer }

// SerialNumber returns the serial number assigned by the manufacturer.
func (p Product) SerialNumber() string { return p.serialNumber }

// Equal reports whether p and other carry byte-identical fields.
func (p Product) Equal(other Product) bool {
	return p.name == other.name &&
		p.manufacturer == other.manufacturer &&
		p.serialNumber == other.serialNumber
}

// Key returns the composite key used to group products by value.
func (p Product) Key() Key {
	return Key{
		Name:         p.name,
		Manufacturer: p.manufacturer,
		SerialNumber: p.serialNumber,
	}
}

// Fields returns the canonical representation of p.
func (p Product) Fields() Fields {
	return Fields{
		Manufacturer: p.manufacturer,
		Name:         p.name,
		SerialNumber: p.serialNumber,
	}
}

func (p Product) String() string {
	return fmt.Sprintf("%s by %s with serial %s", p.name, p.manufacturer, p.serialNumber)
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields())
}

// UnmarshalJSON applies the same rules as Parse.
func (p *Product) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
