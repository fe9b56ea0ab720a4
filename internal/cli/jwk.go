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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/pkg/encoding"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

func newJWKCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwk",
		Short: "Generate, convert and inspect JSON Web Keys",
	}
	cmd.AddCommand(newJWKGenerateCmd(a))
	cmd.AddCommand(newJWKPublicCmd(a))
	cmd.AddCommand(newJWKThumbprintCmd(a))
	cmd.AddCommand(newJWKImportCmd(a))
	cmd.AddCommand(newJWKExportCmd(a))
	return cmd
}

func newJWKGenerateCmd(a *app) *cobra.Command {
	var (
		curve, kid, use, alg string
		raw                  bool
		rsaBits, octSize     int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair or secret",
		Long: `Generate a private JWK on a named curve (P-256, P-384, P-521,
secp256k1, Ed25519, Ed448, X25519, X448), an RSA key with --rsa-bits or a
symmetric key with --oct-size. --raw prints the curve key pair as raw
base64url bytes instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				c, err := jwa.ParseNamedCurve(curve)
				if err != nil {
					return err
				}
				return a.print(a.engine.GenerateKeyPair(c))
			}

			var j *jwk.JWK
			switch {
			case rsaBits > 0:
				key, err := jwk.GenerateRSAKey(rsaBits, nil)
				if err != nil {
					return err
				}
				if j, err = jwk.FromPrivateKey(key); err != nil {
					return err
				}
			case octSize > 0:
				key, err := jwk.GenerateSymmetricKey(octSize, nil)
				if err != nil {
					return err
				}
				if j, err = jwk.FromSymmetricKey(key, ""); err != nil {
					return err
				}
			default:
				c, err := jwa.ParseNamedCurve(curve)
				if err != nil {
					return err
				}
				out, err := check(a.engine.GenerateKeyPairJWK(c))
				if err != nil {
					return err
				}
				data, err := out.Bytes()
				if err != nil {
					return err
				}
				j, err = jwk.Parse(data)
				_ = out.Release()
				if err != nil {
					return err
				}
			}
			if kid != "" {
				j.Kid = kid
			}
			if use != "" {
				j.Use = use
			}
			if alg != "" {
				j.Alg = alg
			}
			return a.printJWK(j)
		},
	}
	cmd.Flags().StringVar(&curve, "curve", jwa.Ed25519.String(), "named curve")
	cmd.Flags().IntVar(&rsaBits, "rsa-bits", 0, "generate an RSA key of this size instead")
	cmd.Flags().IntVar(&octSize, "oct-size", 0, "generate a symmetric key of this many bytes instead")
	cmd.Flags().StringVar(&kid, "kid", "", "key ID")
	cmd.Flags().StringVar(&use, "use", "", "public key use (sig, enc)")
	cmd.Flags().StringVar(&alg, "alg", "", "intended algorithm")
	cmd.Flags().BoolVar(&raw, "raw", false, "print raw key bytes")
	return cmd
}

func newJWKPublicCmd(a *app) *cobra.Command {
	var keyFile string
	cmd := &cobra.Command{
		Use:   "public",
		Short: "Print the public half of a private JWK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.readJWK(keyFile)
			if err != nil {
				return err
			}
			pub, err := j.Public()
			if err != nil {
				return err
			}
			return a.printJWK(pub)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "JWK file (- for stdin)")
	return cmd
}

func newJWKThumbprintCmd(a *app) *cobra.Command {
	var keyFile string
	cmd := &cobra.Command{
		Use:   "thumbprint",
		Short: "Print the RFC 7638 SHA-256 thumbprint of a JWK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.readJWK(keyFile)
			if err != nil {
				return err
			}
			tp, err := j.ThumbprintSHA256()
			if err != nil {
				return err
			}
			return a.printer.PrintValue(tp, map[string]string{"thumbprint": tp})
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "JWK file (- for stdin)")
	return cmd
}

func newJWKImportCmd(a *app) *cobra.Command {
	var pemFile, passwordFile, kid string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert a PEM key or certificate to a JWK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(pemFile)
			if err != nil {
				return err
			}
			password, err := a.readPassword(passwordFile)
			if err != nil {
				return err
			}
			j, err := encoding.DecodePEM(data, password)
			if err != nil {
				return err
			}
			j.Kid = kid
			return a.printJWK(j)
		},
	}
	cmd.Flags().StringVar(&pemFile, "pem", "", "PEM file (default stdin)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "file holding the PKCS#8 password")
	cmd.Flags().StringVar(&kid, "kid", "", "key ID to assign")
	return cmd
}

func newJWKExportCmd(a *app) *cobra.Command {
	var keyFile, passwordFile string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a JWK to PEM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.readJWK(keyFile)
			if err != nil {
				return err
			}
			password, err := a.readPassword(passwordFile)
			if err != nil {
				return err
			}
			out, err := encoding.EncodePEM(j, password)
			if err != nil {
				return err
			}
			return a.printer.PrintRaw(out)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "JWK file (- for stdin)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "encrypt the private key with the password in this file")
	return cmd
}

func (a *app) readJWK(path string) (*jwk.JWK, error) {
	data, err := a.readFile("key", path)
	if err != nil {
		return nil, err
	}
	return jwk.Parse(data)
}

func (a *app) readPassword(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := a.readInput(path)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}

// printJWK prints a key through the same owned output path as engine
// results.
func (a *app) printJWK(j *jwk.JWK) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to encode JWK: %w", err)
	}
	return a.printer.PrintResult(result.NewJSONString(data))
}
