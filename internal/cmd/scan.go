package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/dativo-io/guardian/internal/config"
	"github.com/dativo-io/guardian/pii"
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Detect PII without redacting (argument or stdin)",
	Long: `Scan runs detection, overlap resolution, and the disclosure policy on the
given text and prints the approved entities as JSON, without rewriting
anything. Useful for auditing what protect would mask.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	text, err := readInput(args)
	if err != nil {
		return err
	}

	g, err := newGuardian(cfg)
	if err != nil {
		return err
	}

	entities, err := g.DetectOnly(cmd.Context(), text)
	if err != nil {
		return err
	}
	if entities == nil {
		entities = []pii.Entity{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entities)
}
