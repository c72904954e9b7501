// quizbank manages the question bank stored in the traits database.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/config"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/selection"
)

var dbPath string

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "quizbank",
		Short: "Manage the personality question bank",
		Long: `quizbank imports a JSON question bank into the traits database and
lists what it holds.

The database path defaults to TRAITS_DB.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DB, "traits database")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(traitsCmd())
	rootCmd.AddCommand(questionsCmd())
	rootCmd.AddCommand(selectCmd(cfg.Seed))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*bank.Store, error) {
	store, err := bank.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return store, nil
}

// loadBank opens the store and rebuilds the imported registry.
func loadBank() (*registry.Registry, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load()
}

// importCmd replaces the stored bank with a JSON file.
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [bank.json]",
		Short: "Import a JSON question bank, replacing the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadFile(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Import(reg, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported bank %s\n", info.BankID)
			fmt.Printf("   Traits:    %d\n", info.Traits)
			fmt.Printf("   Facets:    %d\n", info.Facets)
			fmt.Printf("   Questions: %d\n", info.Questions)
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the imported bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Info()
			if err != nil {
				return err
			}
			fmt.Printf("Bank:      %s\n", info.BankID)
			fmt.Printf("Source:    %s\n", info.Source)
			fmt.Printf("Imported:  %s\n", info.ImportedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Traits:    %d\n", info.Traits)
			fmt.Printf("Facets:    %d\n", info.Facets)
			fmt.Printf("Questions: %d\n", info.Questions)
			return nil
		},
	}
}

// traitsCmd lists traits with their facets and question counts.
func traitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traits",
		Short: "List traits and facets",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadBank()
			if err != nil {
				return err
			}
			showFacets, _ := cmd.Flags().GetBool("facets")

			counts := map[string]int{}
			for _, q := range reg.Questions {
				counts[q.PrimaryTrait()]++
			}
			width := 5
			for _, t := range reg.Traits {
				width = max(width, runewidth.StringWidth(t))
			}

			fmt.Printf("%s  %9s  %s\n", runewidth.FillRight("Trait", width), "Questions", "Facets")
			for _, t := range reg.Traits {
				fmt.Printf("%s  %9d  %d\n", runewidth.FillRight(t, width), counts[t], len(reg.Facets[t]))
				if showFacets {
					for _, f := range reg.Facets[t] {
						fmt.Printf("  - %s\n", f)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("facets", false, "list facet names under each trait")
	return cmd
}

func questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadBank()
			if err != nil {
				return err
			}
			trait, _ := cmd.Flags().GetString("trait")
			limit, _ := cmd.Flags().GetInt("limit")

			shown := 0
			for _, q := range reg.Questions {
				if trait != "" && !strings.EqualFold(q.PrimaryTrait(), trait) {
					continue
				}
				if limit > 0 && shown >= limit {
					break
				}
				printQuestion(q)
				shown++
			}
			if shown == 0 {
				fmt.Println("No questions found.")
			}
			return nil
		},
	}
	cmd.Flags().String("trait", "", "only questions whose primary trait matches")
	cmd.Flags().Int("limit", 20, "max questions, 0 for all")
	return cmd
}

// selectCmd previews the question list a mode would draw.
func selectCmd(defaultSeed uint64) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [mode]",
		Short: "Preview the questions drawn for a test mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadBank()
			if err != nil {
				return err
			}
			seed, _ := cmd.Flags().GetUint64("seed")
			questions, err := selection.NewSelector(reg, selection.NewRand(seed)).Select(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d questions (seed %d)\n", len(questions), seed)
			for i, q := range questions {
				fmt.Printf("%4d  %-8s %s\n", i+1, q.ID, q.Category)
			}
			return nil
		},
	}
	cmd.Flags().Uint64("seed", defaultSeed, "selection seed")
	return cmd
}

func printQuestion(q registry.Question) {
	kind := q.Category
	if q.IsDemographic() {
		kind = "demographic"
	}
	fmt.Printf("[%s] %s (%s)\n", q.ID, q.Text, kind)
	for i, c := range q.Choices {
		fmt.Printf("    %d. %s", i+1, c.Text)
		if c.Value != "" && !q.IsDemographic() {
			fmt.Printf("  [%s]", c.Value)
		}
		fmt.Println()
	}
}
