package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/config"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/runner"
)

// recordLister is implemented by the file and SQL record stores
type recordLister interface {
	Records(ctx context.Context, userID string, limit int) ([]*core.ClassifiedRecord, error)
}

// profileEditor is implemented by the SQL store
type profileEditor interface {
	AddCompany(ctx context.Context, userID, name string) error
	AddKeyword(ctx context.Context, userID string, kw core.ProfileKeyword) error
}

var (
	pruneDays    int
	historyLimit int
	keywordType  string
	keywordWt    float64
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored records older than a number of days",
	RunE:  runPrune,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored records, newest first",
	RunE:  runHistory,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the applied companies and custom keywords of a user",
}

var addCompanyCmd = &cobra.Command{
	Use:   "add-company <name>",
	Short: "Add an applied company",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddCompany,
}

var addKeywordCmd = &cobra.Command{
	Use:   "add-keyword <keyword>",
	Short: "Add a custom keyword to a tier",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddKeyword,
}

var listProfileCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the stored profile",
	RunE:  runListProfile,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 30, "Delete records received more than this many days ago")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of records to show (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	addKeywordCmd.Flags().StringVarP(&keywordType, "type", "t", "urgent", "Keyword tier (super, urgent, mid, trash)")
	addKeywordCmd.Flags().Float64Var(&keywordWt, "weight", 1.0, "Keyword weight")

	profileCmd.AddCommand(addCompanyCmd, addKeywordCmd, listProfileCmd)
	rootCmd.AddCommand(pruneCmd, historyCmd, profileCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if pruneDays < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, cfg *config.Config, store core.RecordStore, logger *zap.Logger) error {
		userID := cfg.GetString("user_id")
		n, err := store.DeleteOlderThan(ctx, userID, pruneDays)
		if err != nil {
			return fmt.Errorf("failed to prune records: %w", err)
		}
		logger.Info("Pruned records", zap.String("user_id", userID), zap.Int("days", pruneDays), zap.Int64("deleted", n))
		fmt.Fprintf(out, "Deleted %d records older than %d days.\n", n, pruneDays)
		return nil
	})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, cfg *config.Config, store core.RecordStore) error {
		lister, ok := store.(recordLister)
		if !ok {
			return fmt.Errorf("the configured store cannot list records")
		}
		records, err := lister.Records(ctx, cfg.GetString("user_id"), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
		if jsonOutput {
			return writeJSON(out, records)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No records stored.")
			return nil
		}
		printer := runner.NewPrinter(out, flags.Verbose)
		for _, record := range records {
			printer.PrintRecord(record)
		}
		return nil
	})
}

func editor(profiles core.ProfileStore) (profileEditor, error) {
	ed, ok := profiles.(profileEditor)
	if !ok {
		return nil, fmt.Errorf("profiles require an SQL store (store.type sqlite, mysql or postgres)")
	}
	return ed, nil
}

func runAddCompany(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("company name must not be empty")
	}
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, cfg *config.Config, profiles core.ProfileStore) error {
		ed, err := editor(profiles)
		if err != nil {
			return err
		}
		if err := ed.AddCompany(ctx, cfg.GetString("user_id"), name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added company %q.\n", name)
		return nil
	})
}

func runAddKeyword(cmd *cobra.Command, args []string) error {
	kw := core.ProfileKeyword{
		Keyword: strings.TrimSpace(args[0]),
		Weight:  keywordWt,
		Type:    keywordType,
	}
	if kw.Keyword == "" {
		return fmt.Errorf("keyword must not be empty")
	}
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, cfg *config.Config, profiles core.ProfileStore) error {
		ed, err := editor(profiles)
		if err != nil {
			return err
		}
		if err := ed.AddKeyword(ctx, cfg.GetString("user_id"), kw); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added %s keyword %q.\n", strings.ToLower(kw.Type), kw.Keyword)
		return nil
	})
}

func runListProfile(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, cfg *config.Config, profiles core.ProfileStore) error {
		if profiles == nil {
			return fmt.Errorf("profiles require an SQL store (store.type sqlite, mysql or postgres)")
		}
		userID := cfg.GetString("user_id")
		companies, err := profiles.Companies(ctx, userID)
		if err != nil {
			return err
		}
		keywords, err := profiles.Keywords(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Companies: %s\n", strings.Join(companies, ", "))
		for _, kw := range keywords {
			fmt.Fprintf(out, "  %-8s %s\n", kw.Type, kw.Keyword)
		}
		return nil
	})
}
