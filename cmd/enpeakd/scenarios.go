package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"EnPeak/internal/config"
	"EnPeak/internal/scenario"
)

func newScenariosCommand(load func() (*config.Config, error)) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "检查内置场景文件",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "场景目录，默认使用配置中的 scenarios.dir")

	resolveDir := func() (string, error) {
		if dir != "" {
			return dir, nil
		}
		cfg, err := load()
		if err != nil {
			return "", err
		}
		return cfg.Scenarios.Dir, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "校验目录下全部场景文件",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveDir()
			if err != nil {
				return err
			}
			items, problems, err := scenario.LoadDir(cmd.Context(), target)
			if err != nil {
				return err
			}
			paths := make([]string, 0, len(problems))
			for path := range problems {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			out := cmd.OutOrStdout()
			for _, path := range paths {
				fmt.Fprintf(out, "INVALID %s: %v\n", filepath.Base(path), problems[path])
			}
			fmt.Fprintf(out, "%d valid, %d invalid\n", len(items), len(problems))
			if len(problems) > 0 {
				return fmt.Errorf("%d 个场景文件无效", len(problems))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出可用场景",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveDir()
			if err != nil {
				return err
			}
			repo, err := scenario.LoadFileRepository(cmd.Context(), target)
			if err != nil {
				return err
			}
			summaries, err := repo.List(cmd.Context(), scenario.Filter{})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDIFFICULTY\tMODE\tSTAGES")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", s.ID, s.Title, s.Category, s.Difficulty, s.Mode, s.StageCount)
			}
			return w.Flush()
		},
	})
	return cmd
}

