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
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

func newJWSCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jws",
		Short: "Sign and verify JSON Web Signature messages",
	}
	cmd.AddCommand(newJWSSignCmd(a))
	cmd.AddCommand(newJWSVerifyCmd(a))
	return cmd
}

func newJWSSignCmd(a *app) *cobra.Command {
	var (
		alg, form, inFile string
		keyFiles          []string
		didcomm           bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload",
		Long: `Sign a payload read from --in (default stdin). The general form takes
--key once per signer. A JWK "alg" member takes precedence over --alg; with
neither the key type default is used (ES256 for P-256, EdDSA for OKP keys).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(keyFiles) == 0 {
				return fmt.Errorf("--key is required")
			}
			keys := make([][]byte, 0, len(keyFiles))
			for _, f := range keyFiles {
				k, err := a.readInput(f)
				if err != nil {
					return err
				}
				keys = append(keys, bytes.TrimSpace(k))
			}
			payload, err := a.readInput(inFile)
			if err != nil {
				return err
			}

			s := jwa.SignatureAlgorithm(alg)
			switch form {
			case "general":
				set := append([]byte(`{"keys":[`), bytes.Join(keys, []byte(","))...)
				set = append(set, "]}"...)
				return a.print(a.engine.GeneralSignJSON(payload, set, didcomm))
			case "flattened", "compact":
				if len(keys) != 1 {
					return fmt.Errorf("the %s serialization takes exactly one --key", form)
				}
				if form == "compact" {
					return a.print(a.engine.CompactSignJSON(s, payload, keys[0], didcomm))
				}
				return a.print(a.engine.FlattenedSignJSON(s, payload, keys[0], didcomm))
			default:
				return fmt.Errorf("unknown serialization %q (compact, flattened, general)", form)
			}
		},
	}
	cmd.Flags().StringVar(&alg, "alg", "", "signature algorithm")
	cmd.Flags().StringArrayVar(&keyFiles, "key", nil, "private JWK file (repeatable for general)")
	cmd.Flags().StringVar(&form, "form", "compact", "serialization (compact, flattened, general)")
	cmd.Flags().StringVar(&inFile, "in", "", "payload file (default stdin)")
	cmd.Flags().BoolVar(&didcomm, "didcomm", false, "produce a DIDComm signed envelope")
	return cmd
}

func newJWSVerifyCmd(a *app) *cobra.Command {
	var (
		keyFile, inFile string
		payloadOnly     bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a JWS in any serialization",
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
			message = bytes.TrimSpace(message)

			verify := a.engine.CompactJSONVerify
			if len(message) > 0 && message[0] == '{' {
				verify = a.engine.JSONVerify
			}
			out, err := check(verify(message, key))
			if err != nil {
				return err
			}
			if payloadOnly {
				return a.printField(out, "payload")
			}
			return a.printer.PrintResult(out)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "public JWK file")
	cmd.Flags().StringVar(&inFile, "in", "", "JWS file (default stdin)")
	cmd.Flags().BoolVar(&payloadOnly, "payload", false, "print the decoded payload only")
	return cmd
}
