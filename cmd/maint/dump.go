package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	dumpPublic bool
	dumpOut    string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write the stored document as JSON",
	Long: `Writes the whole document to stdout or --out. With --public the output is
the stripped view anonymous clients receive.`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpPublic, "public", false, "Dump the public (stripped) view")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "", "Output file (default stdout)")
}

func runDump(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	result, err := e.service.Read(cmd.Context(), !dumpPublic)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if dumpOut != "" {
		f, err := os.Create(dumpOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Document); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	e.logger.Info("document dumped", "version", result.Version, "public", dumpPublic)
	return nil
}
