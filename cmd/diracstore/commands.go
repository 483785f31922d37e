package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/diracstore/diracstore/internal/config"
)

func existsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "check whether a logical file name is present in the catalog",
		ArgsUsage: "<lfn>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("expected exactly one LFN argument")
			}

			provider, cleanup, err := setupProvider(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			obj := provider.Object(ctx.Args().First(), "")
			ok, err := obj.Exists(ctx.Context)
			if err != nil {
				return err
			}

			fmt.Println(ok)
			return nil
		},
	}
}

func statCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "print catalog metadata (size, modification time) for an LFN",
		ArgsUsage: "<lfn>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("expected exactly one LFN argument")
			}

			provider, cleanup, err := setupProvider(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			obj := provider.Object(ctx.Args().First(), "")
			info, err := obj.Stat(ctx.Context)
			if err != nil {
				return err
			}

			fmt.Printf("LFN:   %s\n", info.LFN)
			fmt.Printf("Size:  %d\n", info.Size)
			fmt.Printf("Mtime: %s\n", info.ModTime.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "download an LFN into a local staging path",
		ArgsUsage: "<lfn> <local-path>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 2 {
				return fmt.Errorf("expected LFN and local path arguments")
			}

			provider, cleanup, err := setupProvider(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			obj := provider.Object(ctx.Args().Get(0), ctx.Args().Get(1))
			path, ok, err := obj.Download(ctx.Context)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("download of %s did not complete", obj.LogicalName())
			}

			fmt.Println(path)
			return nil
		},
	}
}

func putCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "upload a local file to the configured storage element",
		ArgsUsage: "<local-path> <lfn>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 2 {
				return fmt.Errorf("expected local path and LFN arguments")
			}

			provider, cleanup, err := setupProvider(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			obj := provider.Object(ctx.Args().Get(1), ctx.Args().Get(0))
			if _, err := obj.Upload(ctx.Context); err != nil {
				return err
			}

			fmt.Printf("uploaded %s to %s\n", obj.LocalPath(), obj.Host())
			return nil
		},
	}
}

func hostCommand() *cli.Command {
	return &cli.Command{
		Name:  "host",
		Usage: "print the configured default storage element",
		Action: func(ctx *cli.Context) error {
			provider, cleanup, err := setupProvider(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println(provider.StorageElement())
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "configuration utilities",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write a default configuration file",
				ArgsUsage: "<path>",
				Action: func(ctx *cli.Context) error {
					if ctx.NArg() != 1 {
						return fmt.Errorf("expected a destination path argument")
					}
					return config.NewDefault().SaveToFile(ctx.Args().First())
				},
			},
			{
				Name:  "show",
				Usage: "print the effective configuration after file, env and flags",
				Action: func(ctx *cli.Context) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}

					fmt.Printf("storage element: %s\n", cfg.Storage.StorageElement)
					fmt.Printf("retry:           %d\n", cfg.Storage.Retry)
					fmt.Printf("retry delay:     %s\n", cfg.Storage.RetryDelay)
					fmt.Printf("command timeout: %s\n", cfg.Storage.CommandTimeout)
					fmt.Printf("wrapper:         %q\n", cfg.Storage.Wrapper)
					fmt.Printf("cache TTL:       %s\n", cfg.Storage.MetadataCacheTTL)
					fmt.Printf("log level:       %s\n", cfg.Logging.Level)
					fmt.Printf("metrics enabled: %v\n", cfg.Metrics.Enabled)
					return nil
				},
			},
		},
	}
}
