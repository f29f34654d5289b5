package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"garland/internal/catalog"
	"garland/internal/titles"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var watched bool
	var watchedDate string
	var rating float64
	var review string

	cmd := &cobra.Command{
		Use:   "add <tmdb-id>",
		Short: "Add a single movie to a collection by TMDB id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || tmdbID <= 0 {
				return fmt.Errorf("invalid TMDB id %q", args[0])
			}

			searcher, err := ctx.newSearcher()
			if err != nil {
				return err
			}
			details, err := searcher.GetMovieDetails(cmd.Context(), tmdbID)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *catalog.Store) error {
				movie, createdMovie, err := store.UpsertMovie(cmd.Context(), catalog.FromDetails(details))
				if err != nil {
					return err
				}

				patch := catalog.AnnotationPatch{}
				if cmd.Flags().Changed("watched") {
					patch.Watched = &watched
				}
				if watchedDate != "" {
					parsed, err := time.Parse("2006-01-02", watchedDate)
					if err != nil {
						return fmt.Errorf("invalid watched date %q (want YYYY-MM-DD)", watchedDate)
					}
					watchedTrue := true
					patch.Watched = &watchedTrue
					patch.WatchedDate = &parsed
				}
				if cmd.Flags().Changed("rating") {
					if rating < 1 || rating > 10 {
						return fmt.Errorf("rating %.1f outside the 1-10 scale", rating)
					}
					patch.Rating = &rating
				}
				if review != "" {
					patch.Review = &review
				}
				_, createdAnnotation, err := store.UpsertAnnotation(cmd.Context(), userID, movie.ID, patch)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				verb := "Updated"
				if createdAnnotation {
					verb = "Added"
				}
				year := titles.Year(movie.ReleaseDate)
				if year != "" {
					year = " (" + year + ")"
				}
				fmt.Fprintf(out, "%s %s%s in %s's collection\n", verb, movie.Title, year, userID)
				if createdMovie {
					fmt.Fprintln(out, "New shared catalogue entry created")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User whose collection receives the movie")
	cmd.Flags().BoolVar(&watched, "watched", false, "Mark the movie as watched")
	cmd.Flags().StringVar(&watchedDate, "watched-date", "", "Date the movie was watched (YYYY-MM-DD, implies --watched)")
	cmd.Flags().Float64Var(&rating, "rating", 0, "Personal rating on the 1-10 scale")
	cmd.Flags().StringVar(&review, "review", "", "Personal review text")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
