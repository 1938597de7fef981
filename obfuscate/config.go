package obfuscate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = ".pgrename"
	configType = "yaml"
	envPrefix  = "PGRENAME"
)

// Environment variables understood for compatibility with the end-to-end
// harness, bound next to the PGRENAME_* ones. EnvMapping names an existing
// mapping the run is checked against; it is never written.
const (
	EnvDexFile  = "pg_config_e2e_dexfile"
	EnvMapping  = "pg_config_e2e_mapping"
	EnvPGConfig = "pg_config_e2e_pgconfig"
)

// Config describes one obfuscation run.
type Config struct {
	// Input is the class container to rewrite.
	Input string `mapstructure:"input" yaml:"input" validate:"required,container"`
	// Output is where the rewritten container goes. Empty means Input.
	Output string `mapstructure:"output" yaml:"output,omitempty" validate:"omitempty,container"`
	// Rules are Proguard rule files, parsed in order and merged.
	Rules []string `mapstructure:"rules" yaml:"rules" validate:"required,min=1,dive,required"`

	Mapping MappingConfig `mapstructure:"mapping" yaml:"mapping"`

	// Workers bounds parallel rule matching. Zero uses one per CPU.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=1024"`
	// UniqueMemberNames forces -useuniqueclassmembernames.
	UniqueMemberNames bool `mapstructure:"unique_member_names" yaml:"unique_member_names,omitempty"`
	// DryRun stops before anything is written.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run,omitempty"`
}

// MappingConfig locates mapping files. Each path overrides the matching
// rule directive.
type MappingConfig struct {
	// Out receives the produced mapping (-printmapping).
	Out string `mapstructure:"out" yaml:"out,omitempty"`
	// Apply seeds names from a previous mapping (-applymapping).
	Apply string `mapstructure:"apply" yaml:"apply,omitempty"`
	// Expect fails the run when the produced mapping differs from it.
	Expect string `mapstructure:"expect" yaml:"expect,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("container", validateContainer)
}

func validateContainer(fl validator.FieldLevel) bool {
	p := strings.TrimSuffix(fl.Field().String(), ".lz4")
	return filepath.Ext(p) == ".json"
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Namespace())
	field = strings.TrimPrefix(field, "config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "container":
		return fmt.Sprintf("%s %q is not a .json or .json.lz4 container", field, fe.Value())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param())
	}
}

// OutputPath returns where the rewritten container is written.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Input
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"input":          "input",
	"output":         "output",
	"rules":          "rules",
	"mapping":        "mapping.out",
	"apply-mapping":  "mapping.apply",
	"expect-mapping": "mapping.expect",
	"workers":        "workers",
	"unique-members": "unique_member_names",
	"dry-run":        "dry_run",
}

// LoadConfig reads configuration from defaults, an optional YAML file and
// the environment. Flags in fs that were set on the command line take
// precedence over all of them. With an empty
// path, .pgrename.yaml is searched for in the working directory and $HOME;
// a missing file is not an error.
func LoadConfig(path string, fs ...*pflag.FlagSet) (*Config, error) {
	v := viper.New()
	applyDefaults(v)
	for _, set := range fs {
		for name, key := range flagKeys {
			if f := set.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindHarnessEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("rules", []string{})
	v.SetDefault("mapping.out", "")
	v.SetDefault("mapping.apply", "")
	v.SetDefault("mapping.expect", "")
	v.SetDefault("workers", 0)
	v.SetDefault("unique_member_names", false)
	v.SetDefault("dry_run", false)
}

// bindHarnessEnv adds the harness variables as a second source for their
// keys. PGRENAME_* wins when both are set.
func bindHarnessEnv(v *viper.Viper) error {
	bindings := []struct{ key, env string }{
		{"input", EnvDexFile},
		{"mapping.expect", EnvMapping},
		{"rules", EnvPGConfig},
	}
	for _, b := range bindings {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(b.key, ".", "_"))
		if err := v.BindEnv(b.key, prefixed, b.env); err != nil {
			return fmt.Errorf("bind %s: %w", b.env, err)
		}
	}
	return nil
}
