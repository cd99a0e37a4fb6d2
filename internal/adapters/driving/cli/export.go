package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/adapters/driven/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <canonical.json>",
	Short: "Export a canonical document as a spreadsheet",
	Long: `Write a canonical document as an .xlsx workbook with summary, line item,
feature and validation sheets. The default output replaces the .json
extension with .xlsx.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output .xlsx path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, err := readCanonical(cmd, args[0])
	if err != nil {
		return err
	}
	data, err := export.Workbook(doc)
	if err != nil {
		return err
	}
	out := exportOutput
	if out == "" {
		out = exportPath(args[0])
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	cmd.Printf("Exported %d rooms to %s\n", len(doc.Rooms), out)
	return nil
}

// exportPath swaps a .json extension for .xlsx.
func exportPath(in string) string {
	if in == "-" {
		return "estimate.xlsx"
	}
	ext := filepath.Ext(in)
	if strings.EqualFold(ext, ".json") {
		return strings.TrimSuffix(in, ext) + ".xlsx"
	}
	return in + ".xlsx"
}
