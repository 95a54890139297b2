// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-asset/lib/asset"
	"github.com/bureau-foundation/bureau-asset/lib/assetclient"
	"github.com/bureau-foundation/bureau-asset/lib/version"
)

const (
	socketEnvironmentVariable = "BUREAU_ASSET_SOCKET"
	defaultSocketPath         = "/run/bureau/asset.sock"

	// defaultChunkSize is the range size used when downloading a whole
	// blob.
	defaultChunkSize = 1 << 20
)

// connectionParams are the flags every networked command shares.
type connectionParams struct {
	socket  string
	timeout time.Duration
}

func (p *connectionParams) addFlags(flagSet *pflag.FlagSet) {
	socket := os.Getenv(socketEnvironmentVariable)
	if socket == "" {
		socket = defaultSocketPath
	}
	flagSet.StringVar(&p.socket, "socket", socket, "asset service socket path")
	flagSet.DurationVar(&p.timeout, "timeout", 30*time.Second, "overall deadline for the command")
}

// connect dials the service and returns a client plus a context bounded
// by --timeout. The returned cleanup closes both.
func (p *connectionParams) connect() (context.Context, *assetclient.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	client, err := assetclient.Dial(ctx, p.socket)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, client, func() {
		client.Close()
		cancel()
	}, nil
}

// root builds the command tree. Command output goes to stdout.
func root(stdout io.Writer) *Command {
	return &Command{
		Name:    "bureau-asset",
		Summary: "Upload, fetch, and map content-addressed assets.",
		Subcommands: []*Command{
			uploadCommand(stdout),
			infoCommand(stdout),
			getCommand(stdout),
			mapCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					version.Print(stdout, "bureau-asset")
					return nil
				},
			},
		},
	}
}

func uploadCommand(stdout io.Writer) *Command {
	var params connectionParams
	var mapPath string
	return &Command{
		Name:    "upload",
		Summary: "Upload a file and print its hash",
		Usage:   "bureau-asset upload FILE [--map PATH] [flags]   (FILE \"-\" reads stdin)",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("upload", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&mapPath, "map", "", "also map this path to the uploaded hash")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("upload takes exactly one FILE argument")
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			ctx, client, cleanup, err := params.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			hash, err := client.Upload(ctx, data)
			if err != nil {
				return err
			}
			if mapPath != "" {
				if err := client.SetMapping(ctx, mapPath, hash); err != nil {
					return err
				}
			}
			fmt.Fprintln(stdout, hash)
			return nil
		},
	}
}

func infoCommand(stdout io.Writer) *Command {
	var params connectionParams
	return &Command{
		Name:    "info",
		Summary: "Print the size of a blob",
		Usage:   "bureau-asset info HASH [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			params.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("info takes exactly one HASH argument")
			}
			hash, err := asset.Parse(args[0])
			if err != nil {
				return err
			}

			ctx, client, cleanup, err := params.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			size, err := client.GetInfo(ctx, hash)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s %d\n", hash, size)
			return nil
		},
	}
}

func getCommand(stdout io.Writer) *Command {
	var (
		params     connectionParams
		path       string
		start, end int64
		chunkSize  int64
		output     string
	)
	return &Command{
		Name:    "get",
		Summary: "Download a blob or a byte range of it",
		Usage:   "bureau-asset get HASH | --path PATH [--start N] [--end N] [-o FILE] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&path, "path", "", "resolve this mapped path instead of giving a hash")
			flagSet.Int64Var(&start, "start", 0, "first byte to fetch")
			flagSet.Int64Var(&end, "end", 0, "byte after the last to fetch (0 means the end of the blob)")
			flagSet.Int64Var(&chunkSize, "chunk-size", defaultChunkSize, "bytes per range request")
			flagSet.StringVarP(&output, "output", "o", "", "write to FILE instead of stdout")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 || (len(args) == 1) == (path != "") {
				return fmt.Errorf("get takes either one HASH argument or --path")
			}
			if start < 0 || end < 0 || chunkSize <= 0 {
				return fmt.Errorf("--start and --end must be non-negative and --chunk-size positive")
			}

			ctx, client, cleanup, err := params.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			var hash asset.Hash
			if path != "" {
				hash, err = client.GetMapping(ctx, path)
			} else {
				hash, err = asset.Parse(args[0])
			}
			if err != nil {
				return err
			}

			if end == 0 {
				size, err := client.GetInfo(ctx, hash)
				if err != nil {
					return err
				}
				end = int64(size)
			}

			writer := stdout
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				writer = file
			}

			for offset := start; offset < end; {
				chunkEnd := min(offset+chunkSize, end)
				data, err := client.Get(ctx, hash, offset, chunkEnd)
				if err != nil {
					return err
				}
				if len(data) == 0 {
					break
				}
				if _, err := writer.Write(data); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
				offset += int64(len(data))
			}
			return nil
		},
	}
}

func mapCommand(stdout io.Writer) *Command {
	var params connectionParams
	connectionFlags := func(name string) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			params.addFlags(flagSet)
			return flagSet
		}
	}

	return &Command{
		Name:    "map",
		Summary: "Read and edit path mappings",
		Subcommands: []*Command{
			{
				Name:    "get",
				Summary: "Print the hash a path maps to",
				Usage:   "bureau-asset map get PATH [flags]",
				Flags:   connectionFlags("get"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("map get takes exactly one PATH argument")
					}
					ctx, client, cleanup, err := params.connect()
					if err != nil {
						return err
					}
					defer cleanup()

					hash, err := client.GetMapping(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout, hash)
					return nil
				},
			},
			{
				Name:    "set",
				Summary: "Map a path to a hash",
				Usage:   "bureau-asset map set PATH HASH [flags]",
				Flags:   connectionFlags("set"),
				Run: func(args []string) error {
					if len(args) != 2 {
						return fmt.Errorf("map set takes PATH and HASH arguments")
					}
					hash, err := asset.Parse(args[1])
					if err != nil {
						return err
					}
					ctx, client, cleanup, err := params.connect()
					if err != nil {
						return err
					}
					defer cleanup()

					return client.SetMapping(ctx, args[0], hash)
				},
			},
			{
				Name:    "delete",
				Summary: "Remove a path mapping",
				Usage:   "bureau-asset map delete PATH [flags]",
				Flags:   connectionFlags("delete"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("map delete takes exactly one PATH argument")
					}
					ctx, client, cleanup, err := params.connect()
					if err != nil {
						return err
					}
					defer cleanup()

					return client.DeleteMapping(ctx, args[0])
				},
			},
		},
	}
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
