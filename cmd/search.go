package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/search"
)

var (
	flagSearchKeyword    bool
	flagSearchFuzzy      bool
	flagSearchK          int
	flagSearchPreRelease bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search models by name, language or description",
	Long: `Search the cached models. All query words must match the model name,
language, description or training sources. When nothing matches, the
query is matched fuzzily against model names (e.g. "encwsm").`,
	Args: cobra.MinimumNArgs(0),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&flagSearchKeyword, "keyword", false, "Force keyword search only")
	searchCmd.Flags().BoolVar(&flagSearchFuzzy, "fuzzy", false, "Force fuzzy name search only")
	searchCmd.Flags().IntVar(&flagSearchK, "k", 10, "Number of results to show")
	searchCmd.Flags().BoolVar(&flagSearchPreRelease, "pre-release", false, "Include models with pre-release versions only")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	query := strings.Join(args, " ")

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	inf, err := ws.info(cmd.Context())
	if err != nil {
		return err
	}
	models, err := ws.resolver(inf).ModelPackages(flagSearchPreRelease)
	if err != nil {
		return err
	}
	docs := search.Docs(models)

	var results []search.SearchResult
	switch {
	case flagSearchKeyword:
		results = search.KeywordSearch(docs, query, flagSearchK)
	case flagSearchFuzzy:
		results = search.FuzzySearch(docs, query, flagSearchK)
	default:
		results = search.Search(docs, query, flagSearchK)
	}
	printSearchResults(query, results)
	return nil
}

func printSearchResults(query string, results []search.SearchResult) {
	fmt.Printf("\nnlpm search %q\n\n", query)
	fmt.Printf("Results (%d found):\n", len(results))
	if len(results) == 0 {
		return
	}
	if results[0].Why == "fuzzy" {
		fmt.Println("  (no keyword match; showing fuzzy name matches)")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, r := range results {
		fmt.Fprintf(w, "  %d.\t%s\t%s\n", i+1, r.Model.Name, r.Model.Language)
		if d := strings.TrimSpace(r.Model.Description); d != "" {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
	_ = w.Flush()
}
