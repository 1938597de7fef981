package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/pgrename/obfuscate"
)

var (
	unusedStyle = color.New(color.FgHiYellow)
	strict      bool
)

var checkCmd = &cobra.Command{
	Use:   "check [container]",
	Short: "Report what every rule matches without changing anything",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadRunConfig(cmd.Flags(), args)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, _, err := obfuscate.New(logger).Plan(ctx, cfg)
		if err != nil {
			exitWithError(nil, err)
		}
		printDiagnostics(res)
		fmt.Println(ruleTable(res))
		fmt.Println(res.Summary())

		if strict && (len(res.Diagnostics) > 0 || unusedRules(res) > 0) {
			os.Exit(1)
		}
	},
}

func init() {
	addPipelineFlags(checkCmd.Flags())
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a rule matches nothing or names a missing class")
}

// ruleTable renders one row per rule with what it matched.
func ruleTable(res *obfuscate.Result) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Rule", "Where", "Classes", "Members"})
	var classTotal, memberTotal int
	for i, st := range res.RuleStats {
		classTotal += st.Classes
		memberTotal += st.Members
		where := fmt.Sprintf("line %d", st.Rule.Line)
		if st.Rule.File != "" {
			where = fmt.Sprintf("%s:%d", st.Rule.File, st.Rule.Line)
		}
		classes := fmt.Sprint(st.Classes)
		if st.Classes == 0 {
			classes = unusedStyle.Sprint(classes)
		}
		tbl.AppendRow(table.Row{i + 1, st.Rule.String(), where, classes, st.Members})
	}
	tbl.AppendFooter(table.Row{"", "Total", "", classTotal, memberTotal})
	return tbl.Render()
}

func unusedRules(res *obfuscate.Result) int {
	n := 0
	for _, st := range res.RuleStats {
		if st.Classes == 0 {
			n++
		}
	}
	return n
}
