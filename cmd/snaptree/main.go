package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"snaptree/internal/config"
	"snaptree/internal/driver"
	"snaptree/internal/fs"
	"snaptree/internal/repotools"
	"snaptree/internal/store"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo // CLI entry point wires every subcommand
func run() int {
	var (
		rootDir    string
		metaDir    string
		ignoreFile string
		algo       string
		verbose    bool
	)

	newDriver := func() (*driver.Driver, error) {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return nil, err
		}
		cfg := config.Config{
			Root:           abs,
			MetaDirName:    metaDir,
			IgnoreFileName: ignoreFile,
			Algo:           algo,
		}
		return driver.New(cfg, fs.NewOSFS())
	}

	rootCmd := &cobra.Command{
		Use:           "snaptree",
		Short:         "content-addressed snapshots of a project tree",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootDir, "root", ".", "working tree root")
	pf.StringVar(&metaDir, "meta-dir", config.DefaultMetaDir, "metadata directory name")
	pf.StringVar(&ignoreFile, "ignore-file", config.DefaultIgnoreFile, "ignore file name")
	pf.StringVar(&algo, "algo", config.DefaultAlgo, "per-file digest algorithm (blake3|xxh3|highwayhash)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "create the snapshot layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			if d.IsInitialized() {
				slog.Debug("layout already present", "dir", d.Config().MetaDir())
			}
			return d.Initialize()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "show the current fingerprint and whether the tree is clean",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			ref, err := d.CurrentRef()
			if err != nil {
				return err
			}
			fmt.Printf("fingerprint: %s\n", ref)
			if err := d.CheckUnstagedChanges(); err != nil {
				if errors.Is(err, store.ErrUnstagedChanges) {
					fmt.Println("state: dirty (uncommitted changes)")
					return nil
				}
				return err
			}
			fmt.Println("state: clean")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "commit [ref]",
		Short: "record the current tree as a snapshot, or validate an existing ref",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			out, err := d.CreateRef(ref)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "checkout <ref>",
		Short: "restore the tree recorded by a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			return d.CheckoutRef(args[0])
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "list all snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			refs, err := d.ListRefs()
			if err != nil {
				return err
			}
			for _, r := range refs {
				fmt.Println(r)
			}
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "print the most recent snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			ref, err := d.LatestRef()
			if err != nil {
				return err
			}
			if ref == "" {
				fmt.Println("no snapshots")
				return nil
			}
			fmt.Println(ref)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete <ref>",
		Short: "remove a snapshot's manifest (blobs are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			return d.DeleteRef(args[0])
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "re-digest every stored blob and report corruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			if err := repotools.Verify(d.Store()); err != nil {
				return err
			}
			fmt.Println("store ok")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "diff <ref>",
		Short: "show how the working tree differs from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver()
			if err != nil {
				return err
			}
			td, err := repotools.DiffWorkingTree(d.Store(), args[0])
			if err != nil {
				return err
			}
			if td.Empty() {
				fmt.Println("no differences")
				return nil
			}
			for _, p := range td.Added {
				fmt.Printf("A %s\n", p)
			}
			for _, p := range td.Removed {
				fmt.Printf("D %s\n", p)
			}
			for _, p := range td.Modified {
				fmt.Printf("M %s\n", p)
			}
			diffs, err := repotools.UnifiedDiffs(d.Store(), args[0], td)
			if err != nil {
				return err
			}
			for _, p := range td.Modified {
				fmt.Print(diffs[p])
			}
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
