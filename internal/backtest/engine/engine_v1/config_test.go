package engine

import (
	"encoding/json"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(10, config.Lookback)
	suite.Equal(0, config.ProductID)
	suite.Equal(1, config.Runs)
	suite.Equal(ResultFormatParquet, config.ResultFormat)
	suite.Equal("info", config.LogLevel)
	suite.True(config.EngineVersion.IsNone())
	suite.False(config.CancelOpenOrdersAtEnd)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestTestConfig() {
	config := TestConfig(3, StrategyConfig{Name: "monkey"})

	suite.Equal(3, config.Lookback)
	suite.Len(config.Strategies, 1)
	suite.Equal("monkey", config.Strategies[0].Name)
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLDefaults() {
	var config BacktestEngineV1Config

	err := yaml.Unmarshal([]byte(`
product_id: 2
strategies:
  - name: entry_buy_random
    params:
      prob: 0.25
  - name: exit_sell_in_n_bars
`), &config)
	suite.Require().NoError(err)

	suite.Equal(DefaultLookback, config.Lookback)
	suite.Equal(DefaultRuns, config.Runs)
	suite.Equal(2, config.ProductID)
	suite.Equal(ResultFormatParquet, config.ResultFormat)
	suite.Require().Len(config.Strategies, 2)
	suite.Equal("entry_buy_random", config.Strategies[0].Name)
	suite.InDelta(0.25, config.Strategies[0].Params["prob"], 1e-9)
	suite.Nil(config.Strategies[1].Params)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLOverrides() {
	var config BacktestEngineV1Config

	err := yaml.Unmarshal([]byte(`
lookback: 3
runs: 4
seed: 42
result_format: csv
cancel_open_orders_at_end: true
engine_version: v1.0.0
log_level: debug
`), &config)
	suite.Require().NoError(err)

	suite.Equal(3, config.Lookback)
	suite.Equal(4, config.Runs)
	suite.Equal(int64(42), config.Seed)
	suite.Equal(ResultFormatCSV, config.ResultFormat)
	suite.True(config.CancelOpenOrdersAtEnd)
	suite.Equal("v1.0.0", config.EngineVersion.Unwrap())
	suite.Equal("debug", config.LogLevel)
}

func (suite *ConfigTestSuite) TestMarshalYAML() {
	config := TestConfig(4, StrategyConfig{Name: "monkey"})

	data, err := yaml.Marshal(config)
	suite.Require().NoError(err)
	suite.NotContains(string(data), "engine_version")

	var decoded BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal(4, decoded.Lookback)
	suite.True(decoded.EngineVersion.IsNone())
	suite.Equal("monkey", decoded.Strategies[0].Name)

	config.EngineVersion = optional.Some("1.2.0")
	data, err = yaml.Marshal(config)
	suite.Require().NoError(err)
	suite.Contains(string(data), "engine_version: 1.2.0")

	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal("1.2.0", decoded.EngineVersion.Unwrap())
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name   string
		modify func(c *BacktestEngineV1Config)
	}{
		{name: "zero lookback", modify: func(c *BacktestEngineV1Config) { c.Lookback = 0 }},
		{name: "negative product", modify: func(c *BacktestEngineV1Config) { c.ProductID = -1 }},
		{name: "zero runs", modify: func(c *BacktestEngineV1Config) { c.Runs = 0 }},
		{name: "unknown format", modify: func(c *BacktestEngineV1Config) { c.ResultFormat = "xlsx" }},
		{name: "unknown log level", modify: func(c *BacktestEngineV1Config) { c.LogLevel = "trace" }},
		{name: "unnamed strategy", modify: func(c *BacktestEngineV1Config) { c.Strategies = []StrategyConfig{{Name: ""}} }},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			config := EmptyConfig()
			tt.modify(&config)

			err := config.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
		})
	}
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := &BacktestEngineV1Config{}
	schema, err := config.GenerateSchema()

	suite.NoError(err)
	suite.NotNil(schema)
	suite.Equal("backtest-engine-v1-config", schema.Title)
	suite.Equal("Configuration schema for BacktestEngineV1", schema.Description)
	suite.Equal("http://json-schema.org/draft-07/schema#", schema.Version)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := &BacktestEngineV1Config{}
	schemaJSON, err := config.GenerateSchemaJSON()

	suite.NoError(err)
	suite.NotEmpty(schemaJSON)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "lookback")
	suite.Contains(properties, "strategies")
	suite.Contains(properties, "result_format")
}
