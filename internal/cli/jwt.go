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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwt"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/logging"
)

func newJWTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Mint and verify JSON Web Tokens",
	}
	cmd.AddCommand(newJWTSignCmd(a))
	cmd.AddCommand(newJWTVerifyCmd(a))
	return cmd
}

func newJWTSignCmd(a *app) *cobra.Command {
	var (
		keyFile, alg, kid, claimsFile string
		iss, sub                      string
		aud                           []string
		ttl                           time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a set of claims",
		Long: `Sign the JSON claims in --claims (default: an empty set), adding iss,
sub, aud, iat and exp from the flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.readJWK(keyFile)
			if err != nil {
				return err
			}
			claims := gojwt.MapClaims{}
			if claimsFile != "" {
				data, err := a.readInput(claimsFile)
				if err != nil {
					return err
				}
				dec := json.NewDecoder(bytes.NewReader(data))
				dec.UseNumber()
				if err := dec.Decode(&claims); err != nil {
					return fmt.Errorf("invalid claims: %w", err)
				}
			}
			now := time.Now()
			if iss != "" {
				claims["iss"] = iss
			}
			if sub != "" {
				claims["sub"] = sub
			}
			if len(aud) > 0 {
				claims["aud"] = aud
			}
			claims["iat"] = now.Unix()
			if ttl != 0 {
				claims["exp"] = now.Add(ttl).Unix()
			}

			policy, err := a.cfg.Policy()
			if err != nil {
				return err
			}
			signer, err := jwt.NewSigner(key, &jwt.SignerOptions{
				Algorithm: jwa.SignatureAlgorithm(alg),
				KeyID:     kid,
				Policy:    policy,
			})
			if err != nil {
				return err
			}
			token, err := signer.Sign(claims)
			if err != nil {
				return err
			}
			a.logger.Debug("jwt signed", logging.String("algorithm", signer.Algorithm().String()))
			return a.printer.PrintValue(token, map[string]string{"token": token})
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "private or symmetric JWK file")
	cmd.Flags().StringVar(&alg, "alg", "", "signature algorithm (default from the key)")
	cmd.Flags().StringVar(&kid, "kid", "", "kid header (default: the JWK kid)")
	cmd.Flags().StringVar(&claimsFile, "claims", "", "JSON claims file")
	cmd.Flags().StringVar(&iss, "iss", "", "issuer")
	cmd.Flags().StringVar(&sub, "sub", "", "subject")
	cmd.Flags().StringSliceVar(&aud, "aud", nil, "audience (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "lifetime; 0 omits exp, negative values mint expired tokens")
	return cmd
}

func newJWTVerifyCmd(a *app) *cobra.Command {
	var (
		keyFile, jwksFile, inFile string
		iss, aud, sub             string
		leeway                    time.Duration
		requireExp                bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a token and print its claims",
		Long: `Verify a token read from --in (default stdin) with --key, or with the
key its kid selects from the JWK set in --jwks, then validate exp, nbf and
iat and the requested iss, aud and sub.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(inFile)
			if err != nil {
				return err
			}
			token := strings.TrimSpace(string(data))

			policy, err := a.cfg.Policy()
			if err != nil {
				return err
			}
			opts := &jwt.VerifyOptions{
				Policy:        policy,
				Issuer:        iss,
				Audience:      aud,
				Subject:       sub,
				Leeway:        leeway,
				RequireExpiry: requireExp,
			}

			claims := gojwt.MapClaims{}
			switch {
			case jwksFile != "":
				set, err := a.readInput(jwksFile)
				if err != nil {
					return err
				}
				ks, err := jwt.ParseKeySet(set)
				if err != nil {
					return err
				}
				if err := ks.VerifyClaims(token, &claims, opts); err != nil {
					return err
				}
			default:
				key, err := a.readJWK(keyFile)
				if err != nil {
					return err
				}
				v, err := jwt.NewVerifier(key, opts)
				if err != nil {
					return err
				}
				if err := v.VerifyClaims(token, &claims); err != nil {
					return err
				}
			}

			text, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return err
			}
			return a.printer.PrintValue(string(text), claims)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "public or symmetric JWK file")
	cmd.Flags().StringVar(&jwksFile, "jwks", "", "JWK set file; the token kid selects the key")
	cmd.Flags().StringVar(&inFile, "in", "", "token file (default stdin)")
	cmd.Flags().StringVar(&iss, "iss", "", "required issuer")
	cmd.Flags().StringVar(&aud, "aud", "", "required audience")
	cmd.Flags().StringVar(&sub, "sub", "", "required subject")
	cmd.Flags().DurationVar(&leeway, "leeway", 0, "tolerated clock skew")
	cmd.Flags().BoolVar(&requireExp, "require-exp", false, "reject tokens without exp")
	return cmd
}
