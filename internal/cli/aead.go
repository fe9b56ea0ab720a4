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

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

func newAEADCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aead",
		Short: "Run a content encryption algorithm directly",
		Long: `Encrypt and decrypt with AES-GCM or AES-CBC-HMAC-SHA2 using a raw key.
Keys, IVs, AAD, ciphertexts and tags are unpadded base64url.`,
	}
	cmd.AddCommand(newAEADEncryptCmd(a))
	cmd.AddCommand(newAEADDecryptCmd(a))
	return cmd
}

type aeadFlags struct {
	enc, key, iv, aad string
}

func (f *aeadFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.enc, "enc", "", "content encryption algorithm (default: fastest AES-GCM)")
	cmd.Flags().StringVar(&f.key, "key", "", "key")
	cmd.Flags().StringVar(&f.iv, "iv", "", "initialization vector")
	cmd.Flags().StringVar(&f.aad, "aad", "", "additional authenticated data")
}

func (f *aeadFlags) decode() (enc jwa.ContentEncryption, key, iv, aad []byte, err error) {
	enc = aead.Resolve(jwa.ContentEncryption(f.enc))
	if key, err = decodeFlag("key", f.key); err != nil {
		return
	}
	if iv, err = decodeFlag("iv", f.iv); err != nil {
		return
	}
	aad, err = decodeFlag("aad", f.aad)
	return
}

func newAEADEncryptCmd(a *app) *cobra.Command {
	var (
		f      aeadFlags
		inFile string
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message, printing ciphertext, tag and iv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, key, iv, aad, err := f.decode()
			if err != nil {
				return err
			}
			if iv == nil {
				if iv, err = aead.GenerateIV(enc, nil); err != nil {
					return err
				}
			}
			msg, err := a.readInput(inFile)
			if err != nil {
				return err
			}
			out, err := check(a.engine.Encrypt(enc, key, iv, msg, aad))
			if err != nil {
				return err
			}
			data, err := out.Bytes()
			if err != nil {
				return err
			}
			var sealed map[string]string
			err = json.Unmarshal(data, &sealed)
			_ = out.Release()
			if err != nil {
				return err
			}
			sealed["iv"] = header.Encode(iv)
			sealed["enc"] = enc.String()
			merged, err := json.Marshal(sealed)
			if err != nil {
				return err
			}
			return a.printer.PrintResult(result.NewJSONString(merged))
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&inFile, "in", "", "plaintext file (default stdin)")
	return cmd
}

func newAEADDecryptCmd(a *app) *cobra.Command {
	var (
		f               aeadFlags
		ciphertext, tag string
		raw             bool
	)
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt and authenticate a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, key, iv, aad, err := f.decode()
			if err != nil {
				return err
			}
			ct, err := decodeFlag("ciphertext", ciphertext)
			if err != nil {
				return err
			}
			t, err := decodeFlag("tag", tag)
			if err != nil {
				return err
			}
			out, err := check(a.engine.Decrypt(enc, key, ct, iv, t, aad))
			if err != nil {
				return err
			}
			if raw {
				return a.printField(out, "plaintext")
			}
			return a.printer.PrintResult(out)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&ciphertext, "ciphertext", "", "ciphertext")
	cmd.Flags().StringVar(&tag, "tag", "", "authentication tag")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the decoded plaintext only")
	return cmd
}

func decodeFlag(name, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := header.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return b, nil
}

// printField writes the decoded base64url member name of an engine output
// and releases it.
func (a *app) printField(out *result.JSONString, name string) error {
	defer out.Release()
	data, err := out.Bytes()
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var encoded string
	if err := json.Unmarshal(fields[name], &encoded); err != nil {
		return fmt.Errorf("output has no %s: %w", name, err)
	}
	b, err := header.Decode(encoded)
	if err != nil {
		return err
	}
	return a.printer.PrintRaw(b)
}
