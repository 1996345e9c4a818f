package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// universeFile is the YAML layout of an instrument universe:
//
//	instruments:
//	  - symbol: AAPL
//	    base_price: 170.00
type universeFile struct {
	Instruments []struct {
		Symbol    string    `yaml:"symbol"`
		BasePrice yamlPrice `yaml:"base_price"`
	} `yaml:"instruments"`
}

// yamlPrice decodes a YAML scalar into a decimal without a float round trip.
type yamlPrice struct {
	decimal.Decimal
}

func (p *yamlPrice) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: base_price must be a number", n.Line)
	}
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: base_price: %w", n.Line, err)
	}
	p.Decimal = d
	return nil
}

// LoadUniverse reads the instrument universe from path. An empty path
// returns the built-in default universe.
func LoadUniverse(path string) (*domain.Universe, error) {
	if path == "" {
		return domain.DefaultUniverse(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return ParseUniverse(data)
}

// ParseUniverse decodes a YAML universe document. Unknown fields are errors.
func ParseUniverse(data []byte) (*domain.Universe, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f universeFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidUniverse, err)
	}
	if len(f.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no instruments defined", domain.ErrInvalidUniverse)
	}

	instruments := make([]domain.Instrument, 0, len(f.Instruments))
	for _, in := range f.Instruments {
		instruments = append(instruments, domain.Instrument{Symbol: in.Symbol, BasePrice: in.BasePrice.Decimal})
	}
	u, err := domain.NewUniverse(instruments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidUniverse, err)
	}
	return u, nil
}
