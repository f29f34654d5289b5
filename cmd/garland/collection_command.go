package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"garland/internal/catalog"
	"garland/internal/titles"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "collection",
		Short: "List a user's collection or the shared catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				if userID == "" {
					return renderCatalogue(cmd, store)
				}
				return renderUserCollection(cmd, store, userID)
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Show one user's collection instead of the shared catalogue")
	return cmd
}

func renderUserCollection(cmd *cobra.Command, store *catalog.Store, userID string) error {
	entries, err := store.ListCollection(cmd.Context(), userID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "%s's collection is empty\n", userID)
		return nil
	}

	// The store orders by sort title with sqlite's byte-wise NOCASE; re-sort
	// with a locale-aware collator so accented titles land where a human
	// expects them.
	collator := collate.New(language.English, collate.IgnoreCase)
	collator.Sort(collectionByTitle(entries))

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rating := ""
		if entry.Annotation.Rating != nil {
			rating = fmt.Sprintf("%.1f", *entry.Annotation.Rating)
		}
		rows = append(rows, []string{
			entry.Movie.Title,
			titles.Year(entry.Movie.ReleaseDate),
			yesNo(entry.Annotation.Watched),
			rating,
			yesNo(entry.Annotation.Favorite),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Title", "Year", "Watched", "Rating", "Favorite"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
	fmt.Fprintf(out, "%d movies in %s's collection\n", len(entries), userID)
	return nil
}

func renderCatalogue(cmd *cobra.Command, store *catalog.Store) error {
	movies, err := store.ListMovies(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(movies) == 0 {
		fmt.Fprintln(out, "The shared catalogue is empty")
		return nil
	}

	collator := collate.New(language.English, collate.IgnoreCase)
	collator.Sort(moviesByTitle(movies))

	rows := make([][]string, 0, len(movies))
	for _, movie := range movies {
		rows = append(rows, []string{
			strconv.FormatInt(movie.TMDBID, 10),
			movie.Title,
			titles.Year(movie.ReleaseDate),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"TMDB ID", "Title", "Year"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight}))

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d catalogue entries, %d collection annotations\n", stats.Movies, stats.Annotations)
	return nil
}

// collectionByTitle adapts collection entries to collate.Sort.
type collectionByTitle []catalog.CollectionEntry

func (c collectionByTitle) Len() int           { return len(c) }
func (c collectionByTitle) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c collectionByTitle) Bytes(i int) []byte { return []byte(c[i].Movie.SortTitle) }

// moviesByTitle adapts catalogue entries to collate.Sort.
type moviesByTitle []*catalog.Movie

func (m moviesByTitle) Len() int           { return len(m) }
func (m moviesByTitle) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }
func (m moviesByTitle) Bytes(i int) []byte { return []byte(m[i].SortTitle) }
