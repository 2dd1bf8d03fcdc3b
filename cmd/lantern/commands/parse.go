package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lantern/internal/core/extract"
)

var parseCmd = &cobra.Command{
	Use:   "parse <text-file>",
	Short: "Extract route sheet fields from raw OCR text and print them as JSON",
	Long:  "Runs the field extractor on a text file. Use - to read from stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			b   []byte
			err error
		)
		if args[0] == "-" {
			b, err = io.ReadAll(cmd.InOrStdin())
		} else {
			b, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), extract.Fields(string(b)))
	},
}
