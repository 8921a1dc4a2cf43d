package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DecodeParams copies free-form strategy parameters into out and validates it.
func DecodeParams(params map[string]any, out any) error {
	if len(params) > 0 {
		data, err := yaml.Marshal(params)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode strategy params", err)
		}

		if err := yaml.Unmarshal(data, out); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode strategy params", err)
		}
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy params", err)
	}

	return nil
}
