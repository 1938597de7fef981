package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/pgrename/obfuscate"
)

const (
	defaultConfigPath = ".pgrename.yaml"
	defaultRulesPath  = "proguard.pro"
)

const starterRules = `# Keep entry points by name and signature.
# -keep public class com.example.MainActivity {
#     public void onCreate(android.os.Bundle);
# }

# Keep members used through reflection, let their classes be renamed.
# -keepclassmembers class * {
#     @com.example.Keep *;
# }
`

var force bool

// initCmd: pgrename init
var initCmd = &cobra.Command{
	Use:   "init [container]",
	Short: "Write a starter configuration and rule file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := "classes.json"
		if len(args) == 1 {
			input = args[0]
		}
		path := cfgFile
		if path == "" {
			path = defaultConfigPath
		}
		if err := initConfigurationFile(path, input, force); err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Printf("Configuration file created/updated: %s\n", path)

		if err := writeIfMissing(defaultRulesPath, []byte(starterRules)); err != nil {
			logger.Error("Error writing starter rules", zap.Error(err))
			return
		}
	},
}

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
}

func initConfigurationFile(configurationPath, input string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(configurationPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configurationPath)
		}
	}

	config := obfuscate.Config{
		Input: input,
		Rules: []string{defaultRulesPath},
		Mapping: obfuscate.MappingConfig{
			Out: "mapping.txt",
		},
	}
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	f, err := os.Create(configurationPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}

func writeIfMissing(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
