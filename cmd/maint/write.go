package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"mediadb/internal/domain/services"

	"github.com/spf13/cobra"
)

var (
	seedFile   string
	purgeFile  string
	purgeForce bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Merge a JSON document file into the store",
	Long: `Writes every key of --file through the normal merge, so images missing
from the file are kept from the stored document.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeFile(cmd, seedFile, false)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Replace keys verbatim from a JSON document file",
	Long: `Writes every key of --file in bypass mode: stored values are replaced
exactly, including dropping images the file does not carry. Blocked in the
prod environment unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeFile(cmd, purgeFile, true)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON document to merge")
	_ = seedCmd.MarkFlagRequired("file")

	purgeCmd.Flags().StringVarP(&purgeFile, "file", "f", "", "JSON document whose keys replace the stored ones")
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false, "Allow purge in the prod environment")
	_ = purgeCmd.MarkFlagRequired("file")
}

func writeFile(cmd *cobra.Command, path string, bypass bool) error {
	payload, err := readJSONFile(path)
	if err != nil {
		return err
	}

	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	if bypass && e.cfg.Environment == "prod" && !purgeForce {
		return errors.New("purge is blocked in the prod environment, pass --force to override")
	}

	result, err := e.service.Write(cmd.Context(), &services.WriteRequest{
		Payload:     payload,
		Privileged:  true,
		BypassMerge: bypass,
	})
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %v (version %s)\n", result.Keys, result.Version)
	return nil
}

func readJSONFile(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return payload, nil
}
