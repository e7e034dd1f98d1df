// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilmark/corevault/crypto"
	"github.com/veilmark/corevault/crypto/keys"
)

var keygenOutputFile string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the process secrets and server keypairs for a first deploy",
	Long: `keygen generates everything a fresh CoreConfig needs:

  - five HMAC secrets (K_user, K_row, K_jwt, K_refresh, K_magic)
  - a server Ed25519 signing seed and a server X25519 ECDH seed

and prints them as .env-style assignments matching the ${VAR}
placeholders config.Load substitutes into config/production.yaml's
core section.`,
	Example: `  # Print secrets to stdout
  corevault keygen

  # Write the .env fragment to a file
  corevault keygen --output .env`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOutputFile, "output", "o", "", "write the .env fragment here instead of stdout")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	hmacSecretNames := []string{
		"CVAULT_K_USER",
		"CVAULT_K_ROW",
		"CVAULT_K_JWT",
		"CVAULT_K_REFRESH",
		"CVAULT_K_MAGIC",
	}
	hmacSecrets := make(map[string]string, len(hmacSecretNames))
	for _, name := range hmacSecretNames {
		raw, err := crypto.RandomBytes(32)
		if err != nil {
			return fmt.Errorf("generate %s: %w", name, err)
		}
		hmacSecrets[name] = hex.EncodeToString(raw)
	}

	edKP, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		return fmt.Errorf("generate server ed25519 key: %w", err)
	}
	edSK, ok := edKP.PrivateKey().(ed25519.PrivateKey)
	if !ok {
		return fmt.Errorf("unexpected ed25519 private key type")
	}

	xKP, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return fmt.Errorf("generate server x25519 key: %w", err)
	}
	xSK, ok := xKP.PrivateKey().(*ecdh.PrivateKey)
	if !ok {
		return fmt.Errorf("unexpected x25519 private key type")
	}

	var out []byte
	for _, name := range hmacSecretNames {
		out = append(out, fmt.Sprintf("%s=%s\n", name, hmacSecrets[name])...)
	}
	out = append(out, fmt.Sprintf("CVAULT_SERVER_ED25519_SEED=%s\n", hex.EncodeToString(edSK.Seed()))...)
	out = append(out, fmt.Sprintf("CVAULT_SERVER_X25519_SEED=%s\n", hex.EncodeToString(xSK.Bytes()))...)

	if keygenOutputFile == "" {
		fmt.Print(string(out))
		fmt.Fprintln(os.Stderr, "\n# reference these in config/production.yaml's core section as ${CVAULT_K_USER}, etc.")
		return nil
	}
	if err := os.WriteFile(keygenOutputFile, out, 0600); err != nil {
		return fmt.Errorf("write %s: %w", keygenOutputFile, err)
	}
	fmt.Printf("secrets written to %s\n", keygenOutputFile)
	return nil
}
