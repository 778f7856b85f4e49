package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/vitwit/avatarnft/types"
	"github.com/vitwit/avatarnft/utils"
)

// loadConfig reads file over the defaults. AVATARNFT_* environment
// variables override file values, e.g. AVATARNFT_STORE_PATH.
func loadConfig(file string) (*types.Config, error) {
	config := types.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("AVATARNFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read: %v", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal: %v", err)
	}

	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// bindEnv registers the keys that may come from the environment only.
// AutomaticEnv alone does not reach keys Unmarshal has never seen.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"name", "symbol", "admin", "feeRecipient", "initialFee", "nativeDecimals",
		"incrementThreshold", "nativeOracle", "chain.rpcUrl", "chain.chainId",
		"chain.signerKey", "store.driver", "store.path", "defaultTimeout",
		"logLevel", "enableMetrics", "listen",
	} {
		_ = v.BindEnv(key)
	}
}
