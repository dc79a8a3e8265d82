package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/nuveplayer/nuve/internal/adapter/catalog"
	"github.com/nuveplayer/nuve/internal/adapter/search/youtube"
	"github.com/nuveplayer/nuve/internal/config"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

var errNoAPIKey = errors.New("no YouTube API key configured (set NUVE_YOUTUBE_API_KEY)")

var (
	categoryLimit int
	offline       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search YouTube for tracks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, closeLog, err := loadSettings()
		if err != nil {
			return err
		}
		defer closeLog()

		provider, err := searchProvider(settings, log)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		tracks, err := provider.SearchByQuery(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printTracks(cmd.OutOrStdout(), tracks)
	},
}

var categoryCmd = &cobra.Command{
	Use:       "category <name>",
	Short:     "Load a curated YouTube category",
	Long:      "Load a curated YouTube category. Categories: " + strings.Join(categoryNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: categoryNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := domain.MusicCategory(strings.ToLower(args[0]))
		if !category.Valid() {
			return fmt.Errorf("unknown category %q (want one of %s)", args[0], strings.Join(categoryNames(), ", "))
		}

		settings, log, closeLog, err := loadSettings()
		if err != nil {
			return err
		}
		defer closeLog()

		provider, err := searchProvider(settings, log)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		tracks, err := provider.SearchByCategory(ctx, category, categoryLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d tracks)\n", category.Label(), len(tracks))
		return printTracks(cmd.OutOrStdout(), tracks)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the media catalog",
	Long:  `List the catalog served by the profile API. The bundled demo catalog is listed when the API is unreachable or --offline is set.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, closeLog, err := loadSettings()
		if err != nil {
			return err
		}
		defer closeLog()

		var provider ports.CatalogProvider = catalog.NewDemo()
		if !offline && settings.API.BaseURL != "" {
			client := &http.Client{Timeout: 10 * time.Second}
			provider = catalog.NewFallback(log, catalog.NewHTTP(log, settings.API.BaseURL, client), provider)
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		tracks, err := provider.FetchCatalog(ctx)
		if err != nil {
			return err
		}
		return printTracks(cmd.OutOrStdout(), tracks)
	},
}

func init() {
	categoryCmd.Flags().IntVarP(&categoryLimit, "limit", "n", domain.DefaultCategoryLimit, "number of tracks to collect")
	catalogCmd.Flags().BoolVar(&offline, "offline", false, "list the bundled demo catalog")
	rootCmd.AddCommand(searchCmd, categoryCmd, catalogCmd)
}

func searchProvider(settings *config.Config, log *slog.Logger) (*youtube.Provider, error) {
	if settings.YouTube.APIKey == "" {
		return nil, errNoAPIKey
	}
	return youtube.New(log, settings.YouTube.APIKey,
		youtube.WithRateLimit(settings.YouTube.RequestsPerSecond, settings.YouTube.Burst)), nil
}

func categoryNames() []string {
	return lo.Map(domain.Categories(), func(c domain.MusicCategory, _ int) string {
		return string(c)
	})
}

// printTracks writes one aligned row per track.
func printTracks(w io.Writer, tracks []domain.Track) error {
	if len(tracks) == 0 {
		_, err := fmt.Fprintln(w, "no tracks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tSOURCE")
	for _, t := range tracks {
		source := t.Source(domain.QualityHigh)
		if t.IsYouTube() {
			source = "youtube:" + t.YouTubeVideoID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Artist, source)
	}
	return tw.Flush()
}
