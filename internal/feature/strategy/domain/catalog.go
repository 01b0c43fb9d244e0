package domain

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultStrategy is used when a request names no strategy.
const DefaultStrategy = "growth"

//go:embed catalog.yaml
var defaultCatalog []byte

// Candidate is one ticker a strategy may recommend.
type Candidate struct {
	Ticker        string
	DividendYield decimal.Decimal // 配当利回り（0.03 = 3%）。配当戦略以外ではゼロ
}

// Strategy is a named list of candidates sharing one reason text.
type Strategy struct {
	Name       string
	Reason     string
	Candidates []Candidate
}

// ReasonFor returns the reason text for c, filling in the dividend yield placeholder.
func (s Strategy) ReasonFor(c Candidate) string {
	if !strings.Contains(s.Reason, "{yield}") {
		return s.Reason
	}
	return strings.ReplaceAll(s.Reason, "{yield}", c.DividendYield.Mul(decimal.NewFromInt(100)).StringFixed(2))
}

// Catalog holds the known strategies by name.
type Catalog struct {
	strategies map[string]Strategy
}

type catalogFile struct {
	Strategies map[string]struct {
		Reason     string `yaml:"reason"`
		Candidates []struct {
			Ticker        string `yaml:"ticker"`
			DividendYield string `yaml:"dividend_yield"`
		} `yaml:"candidates"`
	} `yaml:"strategies"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog parses a YAML strategy catalog.
func ParseCatalog(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse strategy catalog: %w", err)
	}
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("parse strategy catalog: no strategies defined")
	}

	cat := &Catalog{strategies: make(map[string]Strategy, len(f.Strategies))}
	for name, s := range f.Strategies {
		if s.Reason == "" {
			return nil, fmt.Errorf("strategy %q: reason is required", name)
		}
		st := Strategy{Name: name, Reason: s.Reason, Candidates: make([]Candidate, 0, len(s.Candidates))}
		for _, c := range s.Candidates {
			ticker := strings.ToUpper(strings.TrimSpace(c.Ticker))
			if ticker == "" {
				return nil, fmt.Errorf("strategy %q: empty ticker", name)
			}
			cand := Candidate{Ticker: ticker}
			if c.DividendYield != "" {
				y, err := decimal.NewFromString(c.DividendYield)
				if err != nil {
					return nil, fmt.Errorf("strategy %q ticker %s: invalid dividend_yield: %w", name, ticker, err)
				}
				cand.DividendYield = y
			}
			st.Candidates = append(st.Candidates, cand)
		}
		cat.strategies[name] = st
	}
	return cat, nil
}

// Lookup returns the named strategy, or ErrInvalidStrategy.
func (c *Catalog) Lookup(name string) (Strategy, error) {
	s, ok := c.strategies[name]
	if !ok {
		return Strategy{}, ErrInvalidStrategy
	}
	return s, nil
}
