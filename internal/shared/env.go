package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvSolverAPIKey    = "TXDPS_SOLVER_API_KEY"
	EnvAuthToken       = "TXDPS_AUTH_TOKEN"
	EnvCaptchaStrategy = "TXDPS_CAPTCHA_STRATEGY"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadEnv reads a dotenv file and returns a [LookupFunc] that prefers the process environment over the file.
//
// A missing file is not an error.
func LoadEnv(path string) (LookupFunc, error) {
	values := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		if read != nil {
			values = read
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides secrets and the strategy selector from the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvSolverAPIKey); ok && strings.TrimSpace(v) != "" {
		c.Captcha.SolverAPIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAuthToken); ok && strings.TrimSpace(v) != "" {
		c.App.AuthToken = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCaptchaStrategy); ok && strings.TrimSpace(v) != "" {
		c.Captcha.Strategy = strings.TrimSpace(v)
	}
}
