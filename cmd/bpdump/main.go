// Copyright 2026 The bitpunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bpdump is a thin demonstration shell around the bitpunch kernel:
// compile a format spec, open a byte source against it, and either dump the
// whole tree or evaluate one expression. It carries no configuration beyond
// its flags (spec.md §6: no environment variables, no persisted state).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leanderhang/bitpunch/bitio"
	"github.com/leanderhang/bitpunch/bp/parser"
	"github.com/leanderhang/bitpunch/codec"
	"github.com/leanderhang/bitpunch/codec/external"
	"github.com/leanderhang/bitpunch/codec/snappy"
	"github.com/leanderhang/bitpunch/internal/compile"
	"github.com/leanderhang/bitpunch/tree"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var specPath, dataPath, exprText, format string

	cmd := &cobra.Command{
		Use:   "bpdump",
		Short: "Decode a byte file against a bitpunch format spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(specPath, dataPath, exprText, format)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&specPath, "spec", "", "path to the format specification (required)")
	flags.StringVar(&dataPath, "data", "", "path to the byte file to decode (required)")
	flags.StringVar(&exprText, "expr", "", "expression to evaluate; defaults to the whole tree's field names")
	flags.StringVar(&format, "format", "text", "output format: text or json")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagRequired("data")
	return cmd
}

func run(specPath, dataPath, exprText, format string) error {
	specSrc, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	f, err := parser.ParseFile(specPath, specSrc)
	if err != nil {
		return err
	}
	sc, err := compile.Compile(f)
	if err != nil {
		return err
	}

	dataSrc, err := os.ReadFile(dataPath)
	if err != nil {
		return err
	}

	reg := codec.Default()
	reg.Register(snappy.Filter{})
	reg.Register(external.Filter{})

	root, err := tree.Open(bitio.NewBytes(dataSrc), sc, reg)
	if err != nil {
		return err
	}

	var result any = root
	if exprText != "" {
		result, err = root.Eval(exprText)
		if err != nil {
			return err
		}
	}
	return printResult(result, format)
}

func printResult(result any, format string) error {
	switch v := result.(type) {
	case *tree.Node:
		return printNode(v, format)
	default:
		if format == "json" {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		fmt.Println(v)
		return nil
	}
}

func printNode(n *tree.Node, format string) error {
	switch n.Kind() {
	case "struct":
		names, err := n.FieldNames()
		if err != nil {
			return err
		}
		if format == "json" {
			b, err := json.MarshalIndent(names, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	case "array":
		l, err := n.Len()
		if err != nil {
			return err
		}
		fmt.Printf("array[%d]\n", l)
		return nil
	default:
		v, err := n.Value()
		if err != nil {
			return err
		}
		fmt.Println(v.String())
		return nil
	}
}
