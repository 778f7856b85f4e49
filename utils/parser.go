package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/avatarnft/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates v using its struct tags
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return nil
}

// ParseConfig parses a Config from JSON on top of the defaults and validates it
func ParseConfig(data []byte) (*types.Config, error) {
	config := types.DefaultConfig()

	if err := json.Unmarshal(data, config); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("failed to parse config: %v", err),
		}
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig runs the struct tag validation followed by the semantic checks
func ValidateConfig(config *types.Config) error {
	if err := validate.Struct(config); err != nil {
		return &types.Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return config.Validate()
}
