package main

import (
	"fmt"

	"mediadb/internal/domain/models"
	"mediadb/internal/domain/services"
	"mediadb/internal/service/catalog"

	"github.com/spf13/cobra"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune-payloads",
	Short: "Drop inline image payloads that already have a remote URL",
	Long: `Removes the base64 "data" of gallery images whose "url" points at a
remote host, then writes the affected collections back in bypass mode. The
write is conditional on the version that was read.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be removed without writing")
}

func runPrune(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	current, err := e.service.Read(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	pruned := catalog.PruneMigratedPayloads(e.schema, current.Document)
	if pruned.Removed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no migrated payloads found")
		return nil
	}

	payload := make(models.Document, len(pruned.Changed))
	for _, key := range pruned.Changed {
		payload[key] = pruned.Document[key]
	}

	if pruneDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "would remove %d payloads from %v\n", pruned.Removed, pruned.Changed)
		return nil
	}

	result, err := e.service.Write(cmd.Context(), &services.WriteRequest{
		Payload:     payload,
		Privileged:  true,
		BypassMerge: true,
		IfMatch:     current.Version,
	})
	if err != nil {
		return fmt.Errorf("write pruned document: %w", err)
	}

	e.logger.Info("migrated payloads pruned", "removed", pruned.Removed, "keys", result.Keys, "version", result.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d payloads (version %s)\n", pruned.Removed, result.Version)
	return nil
}
