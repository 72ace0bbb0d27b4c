package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/vault"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Inspect and maintain the knowledge vault (model weights, LoRA adapters)",
}

var vaultManifestPath string

var vaultManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Create an integrity manifest of every protected path and save it",
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := svc.Vault.CreateManifest()
		if err != nil {
			return err
		}
		if vaultManifestPath != "" {
			if err := vault.SaveManifest(manifest, vaultManifestPath); err != nil {
				return err
			}
			fmt.Printf("manifest written to %s (%d files)\n", vaultManifestPath, manifest.TotalFiles)
			return nil
		}
		body, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var vaultVerifyCmd = &cobra.Command{
	Use:   "verify <manifest.json>",
	Short: "Verify the vault's current state against a saved manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := vault.LoadManifest(args[0])
		if err != nil {
			return err
		}
		ok, mismatches := svc.Vault.VerifyManifest(manifest, "models/")
		if ok {
			fmt.Println("vault integrity verified: no unexpected changes")
			return nil
		}
		fmt.Printf("vault integrity check found %d mismatch(es):\n", len(mismatches))
		for _, m := range mismatches {
			fmt.Printf("  - %s: %s\n", m.Path, m.Reason)
		}
		return nil
	},
}

var vaultAdaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "Show the currently active LoRA adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := svc.Vault.ActiveAdapter()
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Println("no active adapter")
			return nil
		}
		body, err := json.MarshalIndent(active, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	vaultManifestCmd.Flags().StringVar(&vaultManifestPath, "out", "", "Path to write the manifest JSON (stdout if empty)")
	vaultCmd.AddCommand(vaultManifestCmd, vaultVerifyCmd, vaultAdaptersCmd)
}
