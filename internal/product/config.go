package product

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Product describes the tick size of one tradable instrument.
type Product struct {
	ID int `yaml:"id" json:"id" validate:"gte=0"`
	// MinFraction is the smallest price increment counted in units of
	// 10^-FloatDigits, e.g. 25 with 2 digits is a 0.25 tick.
	MinFraction int64 `yaml:"min_frac" json:"min_frac" validate:"gt=0"`
	// FloatDigits is the number of decimal digits prices are quoted with.
	FloatDigits int32 `yaml:"n_float_digits" json:"n_float_digits" validate:"gte=0"`
}

// Tick returns the smallest price increment as a price.
func (p Product) Tick() decimal.Decimal {
	return decimal.New(p.MinFraction, -p.FloatDigits)
}

// Config is the product table. It is usually stored as JSON, which the YAML
// decoder reads as well.
type Config struct {
	Products []Product `yaml:"products" json:"products" validate:"required,min=1,dive"`
}

// LoadConfig reads and validates a product table from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read product config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a product table.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse product config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid product config", err)
	}

	seen := make(map[int]struct{}, len(c.Products))
	for _, p := range c.Products {
		if _, ok := seen[p.ID]; ok {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate product id %d", p.ID)
		}

		seen[p.ID] = struct{}{}
	}

	return nil
}

// Lookup returns the product with the given id.
func (c *Config) Lookup(id int) (Product, error) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, nil
		}
	}

	return Product{}, errors.Newf(errors.ErrCodeConfigNotFound, "product %d is not configured", id)
}
