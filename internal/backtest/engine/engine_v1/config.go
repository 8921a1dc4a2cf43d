package engine

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type ResultFormat string

const (
	ResultFormatParquet ResultFormat = "parquet"
	ResultFormatCSV     ResultFormat = "csv"
)

var AllResultFormats = []any{string(ResultFormatParquet), string(ResultFormatCSV)}

const (
	DefaultLookback     = 10
	DefaultRuns         = 1
	DefaultLogLevel     = "info"
	DefaultResultFormat = ResultFormatParquet
)

// StrategyConfig names a registered strategy and its parameters.
type StrategyConfig struct {
	Name   string         `yaml:"name" json:"name" validate:"required" jsonschema:"title=Name,description=Registered strategy name"`
	Params map[string]any `yaml:"params" json:"params,omitempty" jsonschema:"title=Params,description=Strategy specific parameters"`
}

type BacktestEngineV1Config struct {
	Lookback              int                     `yaml:"lookback" json:"lookback" validate:"gte=1" jsonschema:"title=Lookback,description=Number of bars in the price window handed to strategies,minimum=1,default=10"`
	ProductID             int                     `yaml:"product_id" json:"product_id" validate:"gte=0" jsonschema:"title=Product ID,description=Product traded by the strategies,minimum=0"`
	Runs                  int                     `yaml:"runs" json:"runs" validate:"gte=1" jsonschema:"title=Runs,description=Number of repetitions of the backtest,minimum=1,default=1"`
	Seed                  int64                   `yaml:"seed" json:"seed" jsonschema:"title=Seed,description=Random seed of the first run. Run i uses seed+i"`
	ResultFormat          ResultFormat            `yaml:"result_format" json:"result_format" validate:"oneof=parquet csv" jsonschema:"title=Result Format,description=File format of the exported ledger"`
	CancelOpenOrdersAtEnd bool                    `yaml:"cancel_open_orders_at_end" json:"cancel_open_orders_at_end" jsonschema:"title=Cancel Open Orders At End,description=Cancel orders still open when the feed is exhausted"`
	EngineVersion         optional.Option[string] `yaml:"engine_version" json:"engine_version" jsonschema:"title=Engine Version,description=Engine version this config was written for"`
	LogLevel              string                  `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error"`
	Strategies            []StrategyConfig        `yaml:"strategies" json:"strategies" validate:"dive" jsonschema:"title=Strategies,description=Strategies built from the registry for every run"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Lookback              *int             `yaml:"lookback"`
		ProductID             int              `yaml:"product_id"`
		Runs                  *int             `yaml:"runs"`
		Seed                  int64            `yaml:"seed"`
		ResultFormat          ResultFormat     `yaml:"result_format"`
		CancelOpenOrdersAtEnd bool             `yaml:"cancel_open_orders_at_end"`
		EngineVersion         *string          `yaml:"engine_version"`
		LogLevel              string           `yaml:"log_level"`
		Strategies            []StrategyConfig `yaml:"strategies"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	*c = EmptyConfig()

	if config.Lookback != nil {
		c.Lookback = *config.Lookback
	}

	if config.Runs != nil {
		c.Runs = *config.Runs
	}

	if config.ResultFormat != "" {
		c.ResultFormat = config.ResultFormat
	}

	if config.LogLevel != "" {
		c.LogLevel = config.LogLevel
	}

	if config.EngineVersion != nil {
		c.EngineVersion = optional.Some(*config.EngineVersion)
	}

	c.ProductID = config.ProductID
	c.Seed = config.Seed
	c.CancelOpenOrdersAtEnd = config.CancelOpenOrdersAtEnd
	c.Strategies = config.Strategies

	return nil
}

// MarshalYAML writes the optional engine version as a plain string, or omits it.
func (c BacktestEngineV1Config) MarshalYAML() (interface{}, error) {
	type Config struct {
		Lookback              int              `yaml:"lookback"`
		ProductID             int              `yaml:"product_id"`
		Runs                  int              `yaml:"runs"`
		Seed                  int64            `yaml:"seed"`
		ResultFormat          ResultFormat     `yaml:"result_format"`
		CancelOpenOrdersAtEnd bool             `yaml:"cancel_open_orders_at_end"`
		EngineVersion         *string          `yaml:"engine_version,omitempty"`
		LogLevel              string           `yaml:"log_level"`
		Strategies            []StrategyConfig `yaml:"strategies"`
	}

	config := Config{
		Lookback:              c.Lookback,
		ProductID:             c.ProductID,
		Runs:                  c.Runs,
		Seed:                  c.Seed,
		ResultFormat:          c.ResultFormat,
		CancelOpenOrdersAtEnd: c.CancelOpenOrdersAtEnd,
		EngineVersion:         nil,
		LogLevel:              c.LogLevel,
		Strategies:            c.Strategies,
	}

	if c.EngineVersion.IsSome() {
		version := c.EngineVersion.Unwrap()
		config.EngineVersion = &version
	}

	return config, nil
}

// Validate validates the BacktestEngineV1Config struct.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[string]" {
				return &jsonschema.Schema{
					Type: "string",
				}
			}

			if strings.HasSuffix(t.String(), "engine.ResultFormat") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllResultFormats,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a config for tests with the given lookback and strategies.
func TestConfig(lookback int, strategies ...StrategyConfig) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Lookback = lookback
	config.Strategies = strategies

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Lookback:              DefaultLookback,
		ProductID:             0,
		Runs:                  DefaultRuns,
		Seed:                  0,
		ResultFormat:          DefaultResultFormat,
		CancelOpenOrdersAtEnd: false,
		EngineVersion:         optional.None[string](),
		LogLevel:              DefaultLogLevel,
		Strategies:            nil,
	}
}
