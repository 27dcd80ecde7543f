package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Amazomic/loki-analyzer/internal/analysis"
	"github.com/Amazomic/loki-analyzer/internal/classify"
	"github.com/Amazomic/loki-analyzer/internal/models"
)

// errUnreachable is returned by probe so the exit status reflects the result.
var errUnreachable = errors.New("loki is not reachable")

func newProbeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that Loki answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.queryConfig()
			if err != nil {
				return err
			}
			healthy := opts.backend.Fetcher.TestConnectivity(cmd.Context(), q)
			if err := opts.writeJSON(cmd.OutOrStdout(), map[string]any{"healthy": healthy, "url": q.URL}); err != nil {
				return err
			}
			if !healthy {
				return errUnreachable
			}
			return nil
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and classify log entries",
		Long: `Fetch runs the query against Loki and prints the classified entries,
newest first.

Examples:
  loki-analyzer fetch --url http://loki:3100 -q '{app="api"}' -r 6h
  loki-analyzer fetch --text -n 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.queryConfig()
			if err != nil {
				return err
			}
			entries, err := opts.backend.Fetcher.Fetch(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if text {
				for _, e := range entries {
					fmt.Fprintln(out, analysis.FormatEntry(e))
				}
				return nil
			}
			return opts.writeJSON(out, map[string]any{
				"entries":      entries,
				"count":        len(entries),
				"level_counts": classify.CountLevels(entries),
			})
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "print one formatted line per entry instead of JSON")
	return cmd
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch log entries and analyze them",
		Long: `Analyze fetches entries like the fetch command, or reads them from a JSON
file with --file ("-" for stdin), and prints the provider's analysis.

Examples:
  loki-analyzer analyze -q '{app="api"} |= "error"' -p openai --api-key $OPENAI_API_KEY
  loki-analyzer fetch > logs.json && loki-analyzer analyze --file logs.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				entries []models.LogEntry
				err     error
			)
			if file != "" {
				entries, err = readEntries(cmd.InOrStdin(), file)
			} else {
				var q models.QueryConfig
				if q, err = opts.queryConfig(); err == nil {
					entries, err = opts.backend.Fetcher.Fetch(cmd.Context(), q)
				}
			}
			if err != nil {
				return err
			}

			result, err := opts.backend.Analyzer.Analyze(cmd.Context(), entries, opts.providerConfig())
			if err != nil {
				return err
			}
			return opts.writeJSON(cmd.OutOrStdout(), map[string]any{
				"result":       result,
				"entry_count":  len(entries),
				"level_counts": classify.CountLevels(entries),
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `read entries from a JSON file ("-" for stdin) instead of Loki`)
	return cmd
}

func newProvidersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported LLM providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.writeJSON(cmd.OutOrStdout(), map[string]any{
				"providers":        opts.backend.Analyzer.Providers(),
				"default_provider": models.ParseProvider(opts.cfg.AI.Provider),
			})
		},
	}
}

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models [provider]",
		Short: "List the models a provider offers",
		Long: `Models asks the provider for its selectable models. Listing is best
effort: a missing key or a failed request prints an empty list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.providerConfig()
			if len(args) == 1 {
				p.Provider = models.ParseProvider(args[0])
			}
			list := opts.backend.Analyzer.ListAvailableModels(cmd.Context(), p.Provider, p.APIKey)
			return opts.writeJSON(cmd.OutOrStdout(), map[string]any{
				"provider": p.Provider,
				"models":   list,
			})
		},
	}
}

// readEntries decodes entries from path, or from stdin when path is "-". Both
// a bare array and the object printed by fetch are accepted.
func readEntries(stdin io.Reader, path string) ([]models.LogEntry, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	var entries []models.LogEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	var wrapped struct {
		Entries []models.LogEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding entries from %s: %w", path, err)
	}
	return wrapped.Entries, nil
}
