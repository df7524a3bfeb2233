package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cytherea/internal/app"
	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/resolve"
	"github.com/sydlexius/cytherea/internal/venus"
	"github.com/sydlexius/cytherea/internal/version"
)

func queryCmd(g *globals) *cobra.Command {
	var sign, element, category, subgenre string
	cmd := &cobra.Command{
		Use:   "query [name]",
		Short: "Look up artists in the index by name, sign, element or genre",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				idx, err := a.Index(ctx)
				if err != nil {
					return err
				}
				var out any
				switch {
				case len(args) == 1:
					out, err = idx.Get(ctx, args[0])
				case sign != "":
					s := venus.Sign(strings.ToLower(sign))
					if !s.Valid() {
						return fmt.Errorf("unknown sign %q", sign)
					}
					out, err = idx.BySign(ctx, s)
				case element != "":
					e := venus.Element(strings.ToLower(element))
					switch e {
					case venus.Fire, venus.Earth, venus.Air, venus.Water:
					default:
						return fmt.Errorf("unknown element %q", element)
					}
					out, err = idx.ByElement(ctx, e)
				case category != "":
					c, perr := genre.ParseCategory(category)
					if perr != nil {
						return perr
					}
					out, err = idx.ByGenre(ctx, c)
				case subgenre != "":
					s, perr := genre.ParseSubgenre(subgenre)
					if perr != nil {
						return perr
					}
					out, err = idx.BySubgenre(ctx, s)
				default:
					n, cerr := idx.Count(ctx)
					out, err = map[string]int{"artists": n}, cerr
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&sign, "sign", "", "Venus sign")
	cmd.Flags().StringVar(&element, "element", "", "element of the Venus sign")
	cmd.Flags().StringVar(&category, "genre", "", "genre category")
	cmd.Flags().StringVar(&subgenre, "subgenre", "", "subgenre")
	return cmd
}

func resolveCmd(g *globals) *cobra.Command {
	var minYear int
	var withTags bool
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Run the birth-date chain (and optionally the tag chain) for one artist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				chain := a.Chain()
				if minYear > 0 {
					chain = chain.WithMinYear(minYear)
				}
				q := provider.Query{Name: args[0]}
				res, err := chain.Resolve(ctx, q)
				if err != nil && !errors.Is(err, resolve.ErrUnresolved) {
					return err
				}
				out := map[string]any{"name": args[0], "stable_id": res.StableID}
				if err == nil {
					pos, perr := venus.Calculate(res.Date.Noon())
					if perr != nil {
						return perr
					}
					out["birth_date"] = res.Date.String()
					out["date_approx"] = res.Approx
					out["source"] = res.Source
					out["venus"] = pos
				} else {
					out["error"] = err.Error()
				}
				if withTags {
					q.StableID = res.StableID
					tags, terr := a.TagResolver().Resolve(ctx, q)
					if terr != nil {
						return terr
					}
					out["tags"] = tags.Tags
					out["tag_source"] = tags.Source
					out["classification"] = a.Classifier.Classify(tags.Tags)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().IntVar(&minYear, "min-year", 0, "override the plausible birth year floor")
	cmd.Flags().BoolVar(&withTags, "tags", false, "also resolve and classify genre tags")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <tag>...",
		Short: "Map raw tags onto genre categories and subgenres",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := genre.NewClassifier()
			geo, dominated := c.GeoSignal(args)
			out := map[string]any{"classification": c.Classify(args)}
			if len(geo) > 0 {
				out["geo_tags"] = geo
				out["geo_dominated"] = dominated
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func venusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "venus <date>",
		Short: "Compute the Venus sign for a birth date (YYYY, YYYY-MM or YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, approx, err := artist.NormalizeString(args[0], time.Now(), artist.DefaultMinYear)
			if err != nil {
				return err
			}
			pos, err := venus.Calculate(d.Noon())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"date":        d.String(),
				"date_approx": approx,
				"venus":       pos,
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "cytherea", version.String())
		},
	}
}
