package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dativo-io/guardian/internal/audit"
	"github.com/dativo-io/guardian/internal/config"
	"github.com/dativo-io/guardian/internal/ner"
	"github.com/dativo-io/guardian/pii"
)

var (
	protectJSON  bool
	protectAudit bool
)

var protectCmd = &cobra.Command{
	Use:   "protect [text]",
	Short: "Redact PII from text (argument or stdin)",
	Long: `Protect redacts PII from the given text, or from stdin when no argument
is provided. The redacted text is written to stdout; pass --json for the
full result including entities and the audit log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProtect,
}

func init() {
	protectCmd.Flags().BoolVar(&protectJSON, "json", false, "emit the full ProtectionResult as JSON")
	protectCmd.Flags().BoolVar(&protectAudit, "audit", false, "persist a signed audit record for this run")
	rootCmd.AddCommand(protectCmd)
}

// newGuardian builds the shared pipeline instance from operator config.
func newGuardian(cfg *config.Config) (*pii.Guardian, error) {
	opts := []pii.Option{}
	if cfg.PatternFile != "" {
		opts = append(opts, pii.WithPatternFile(cfg.PatternFile))
	}
	pipeline := cfg.Pipeline()
	if pipeline.EnableModel {
		opts = append(opts, pii.WithModel(ner.New(cfg.ModelBaseURL, pipeline.ModelID)))
	}
	return pii.New(pipeline, opts...)
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func runProtect(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	res, err := g.Protect(ctx, text)
	if err != nil {
		return err
	}

	if protectAudit {
		if err := cfg.EnsureDataDir(); err != nil {
			return err
		}
		cfg.WarnIfDefaultKey()
		store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Store(ctx, audit.NewRecord("cli", res)); err != nil {
			return err
		}
	}

	if protectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println(res.Text)
	return nil
}
