package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/pgrename/internal/descriptor"
	"github.com/gnolang/pgrename/internal/mapping"
)

var reverse bool

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Query and compare mapping files",
}

var mappingLookupCmd = &cobra.Command{
	Use:   "lookup <mapping> <class>...",
	Short: "Print the obfuscated name of classes (or the original with --reverse)",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := readMappingFile(args[0])
		if err != nil {
			logger.Fatal("Failed to read mapping", zap.String("path", args[0]), zap.Error(err))
		}
		missing := false
		for _, name := range args[1:] {
			out, ok := lookupClass(m, name, reverse)
			if !ok {
				fmt.Fprintf(os.Stderr, "%s: not in mapping\n", name)
				missing = true
				continue
			}
			fmt.Printf("%s -> %s\n", name, out)
		}
		if missing {
			os.Exit(1)
		}
	},
}

var mappingDiffCmd = &cobra.Command{
	Use:   "diff <want> <got>",
	Short: "Compare two mapping files line by line",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		want, err := os.ReadFile(args[0])
		if err != nil {
			logger.Fatal("Failed to read mapping", zap.String("path", args[0]), zap.Error(err))
		}
		got, err := os.ReadFile(args[1])
		if err != nil {
			logger.Fatal("Failed to read mapping", zap.String("path", args[1]), zap.Error(err))
		}
		diff, same := mapping.Compare(string(want), string(got))
		if same {
			fmt.Println(okStyle.Sprint("mappings are identical"))
			return
		}
		printDiff(diff)
		os.Exit(1)
	},
}

func init() {
	mappingLookupCmd.Flags().BoolVar(&reverse, "reverse", false, "Map obfuscated names back to original ones")
	mappingCmd.AddCommand(mappingLookupCmd)
	mappingCmd.AddCommand(mappingDiffCmd)
}

func readMappingFile(path string) (*mapping.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mapping.Read(f)
}

// lookupClass accepts a Java name ("com.a.B") or a descriptor ("Lcom/a/B;")
// and answers in the same form.
func lookupClass(m *mapping.Map, name string, reverse bool) (string, bool) {
	desc, java := name, false
	if !strings.HasPrefix(name, "L") || !strings.HasSuffix(name, ";") {
		desc, java = descriptor.InternalName(name), true
	}
	find := m.ClassNew
	if reverse {
		find = m.ClassOld
	}
	out, ok := find(desc)
	if !ok {
		return "", false
	}
	if java {
		return descriptor.ExternalName(out), true
	}
	return out, true
}
