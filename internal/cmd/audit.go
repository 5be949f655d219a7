package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dativo-io/guardian/internal/audit"
	"github.com/dativo-io/guardian/internal/config"
)

var (
	auditSource string
	auditSince  string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the signed audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records (newest first)",
	RunE:  auditList,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [id]",
	Short: "Verify the HMAC signature of a stored record",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerify,
}

func init() {
	auditListCmd.Flags().StringVar(&auditSource, "source", "", "filter by source (cli, http, batch)")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "only records after this RFC3339 time")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum records to return")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func openAuditStore() (*audit.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	return audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
}

func auditList(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var from time.Time
	if auditSince != "" {
		from, err = time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
	}

	records, err := store.List(cmd.Context(), auditSource, from, time.Time{}, auditLimit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func auditVerify(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ok, err := store.Verify(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("signature verification FAILED for record %s", args[0])
	}
	fmt.Printf("record %s: signature valid\n", args[0])
	return nil
}
