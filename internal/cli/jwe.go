// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekit.
//
// go-josekit is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

func newJWECmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwe",
		Short: "Encrypt and decrypt JSON Web Encryption messages",
	}
	cmd.AddCommand(newJWEEncryptCmd(a))
	cmd.AddCommand(newJWEDecryptCmd(a))
	return cmd
}

func newJWEEncryptCmd(a *app) *cobra.Command {
	var (
		alg, enc, form, recipients, inFile string
		didcomm                            bool
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a payload for one or more recipients",
		Long: `Encrypt a payload read from --in (default stdin). --recipients names a
JWK file, or for the general form a JWK set. A recipient JWK with an "alg"
member uses it instead of --alg.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.readFile("recipients", recipients)
			if err != nil {
				return err
			}
			payload, err := a.readInput(inFile)
			if err != nil {
				return err
			}
			k, e := jwa.KeyAlgorithm(alg), jwa.ContentEncryption(enc)
			switch form {
			case "general":
				return a.print(a.engine.GeneralEncryptJSON(k, e, payload, keys, didcomm))
			case "flattened":
				return a.print(a.engine.FlattenedEncryptJSON(k, e, payload, keys, didcomm))
			case "compact":
				if didcomm {
					return fmt.Errorf("--didcomm requires a JSON serialization")
				}
				return a.print(a.engine.CompactEncryptJSON(k, e, payload, keys))
			default:
				return fmt.Errorf("unknown serialization %q (general, flattened, compact)", form)
			}
		},
	}
	cmd.Flags().StringVar(&alg, "alg", jwa.ECDHESA256KW.String(), "key management algorithm")
	cmd.Flags().StringVar(&enc, "enc", "", "content encryption algorithm (default: fastest AES-GCM)")
	cmd.Flags().StringVar(&form, "form", "general", "serialization (general, flattened, compact)")
	cmd.Flags().StringVar(&recipients, "recipients", "", "recipient JWK or JWK set file")
	cmd.Flags().StringVar(&inFile, "in", "", "payload file (default stdin)")
	cmd.Flags().BoolVar(&didcomm, "didcomm", false, "produce a DIDComm encrypted envelope")
	return cmd
}

func newJWEDecryptCmd(a *app) *cobra.Command {
	var (
		keyFile, inFile string
		payloadOnly     bool
	)
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a JWE in any serialization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.readFile("key", keyFile)
			if err != nil {
				return err
			}
			message, err := a.readInput(inFile)
			if err != nil {
				return err
			}
			out, err := check(a.engine.DecryptJSON(message, key))
			if err != nil {
				return err
			}
			if payloadOnly {
				return a.printField(out, "payload")
			}
			return a.printer.PrintResult(out)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "private JWK file")
	cmd.Flags().StringVar(&inFile, "in", "", "JWE file (default stdin)")
	cmd.Flags().BoolVar(&payloadOnly, "payload", false, "print the decoded payload only")
	return cmd
}
