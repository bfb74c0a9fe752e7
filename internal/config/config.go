package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads file into config, which must be a pointer to a struct. Values already set
// in config act as defaults, and every key can be overridden by an environment variable
// named after its path, e.g. SESSION_SECRET for session.secret.
func Load(file string, config any) error {
	v := viper.New()
	m := make(map[string]any)

	// Registering every key up front is what lets AutomaticEnv see keys missing from the file.
	if err := mapstructure.Decode(config, &m); err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config map: %v", err)
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %v", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}

// LoadEnv exports the variables of a dotenv file into the process environment.
// Variables already set win, and a missing file is not an error.
func LoadEnv(file string) error {
	err := godotenv.Load(file)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %v", file, err)
	}
	return nil
}
