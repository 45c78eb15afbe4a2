package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dsh2dsh/logchain/internal/config/env"
)

// PathEnv names the environment variable with the config path, used when
// no path was given.
const PathEnv = "LOGCHAIN_CONFIG"

var defaultLocations = [...]string{
	"/etc/logchain/logchain.yml",
	"/usr/local/etc/logchain/logchain.yml",
}

// ParseConfig reads the config from path. An empty path means $LOGCHAIN_CONFIG
// or the first existing default location.
func ParseConfig(path string, opts ...Option) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfigBytes(path, b, opts...)
}

func findConfig() (string, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return path, nil
	}

	for _, l := range defaultLocations {
		stat, err := os.Stat(l)
		if err != nil {
			continue
		} else if !stat.Mode().IsRegular() {
			return "", fmt.Errorf("config at default location is not a regular file: %s", l)
		}
		return l, nil
	}
	return "", fmt.Errorf("no config: use --config, $%s or one of %s",
		PathEnv, strings.Join(defaultLocations[:], ", "))
}

// ParseConfigBytes parses config b, read from path. Includes are relative to
// path.
func ParseConfigBytes(path string, b []byte, opts ...Option,
) (*Config, error) {
	c := New(opts...)
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("init config with defaults: %w", err)
	} else if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	} else if c == nil {
		return nil, errors.New("there was no yaml document in the config")
	}

	if err := c.lateInit(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	} else if err := validateConfig(c); err != nil {
		return nil, err
	} else if err := env.Parse(); err != nil {
		return nil, err
	}
	return c, nil
}

// validateConfig reports every invalid field by its yaml path, like
// "channels[0].handlers[1].address".
func validateConfig(c *Config) error {
	err := Validator().Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		return nil
	}

	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		field := fe.Namespace()
		if _, after, ok := strings.Cut(field, "."); ok {
			field = after
		}
		field = strings.ReplaceAll(field, ".Ret", "")
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s: %s", field, fe.Tag())
		}
	}
	return fmt.Errorf("validate config: %w: %s", err, strings.Join(msgs, "; "))
}

func Validator() *validator.Validate {
	if validate == nil {
		validate = newValidator()
	}
	return validate
}

var validate *validator.Validate

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}
