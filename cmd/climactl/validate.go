package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"station-climatology/internal/filestore"
)

const maxRejectedShown = 3

// fileCheck summarizes one source file
type fileCheck struct {
	path     string
	valid    int
	rejected []filestore.RowError
	detail   string
	err      error
}

// validateCmd parses every source file without building the store and reports per-file results
func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check the catalog, quality and series files and report rejected rows",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: storeNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []fileCheck{
				a.checkCatalog(a.cfg.Store.CatalogPath),
				a.checkQuality(a.cfg.Store.QualityPath),
			}

			files, err := filestore.MatchSeriesFiles(a.cfg.Store.SeriesPattern)
			if err != nil {
				checks = append(checks, fileCheck{path: a.cfg.Store.SeriesPattern, err: err})
			}
			for _, path := range files {
				checks = append(checks, a.checkSeries(path))
			}

			failed := 0
			for _, c := range checks {
				printCheck(a.out, c)
				if c.err != nil || len(c.rejected) > 0 {
					failed++
				}
			}

			fmt.Fprintf(a.out, "%s\n%d files checked, %d with problems\n", strings.Repeat("=", 60), len(checks), failed)
			if failed > 0 {
				return fmt.Errorf("%d files with problems", failed)
			}
			return nil
		},
	}
}

func (a *app) checkCatalog(path string) fileCheck {
	c := fileCheck{path: path}
	stations, rejected, err := filestore.ReadFile(path, a.separator, filestore.ReadCatalog)
	c.valid, c.rejected, c.err = len(stations), rejected, err

	regions := make(map[string]struct{})
	for _, s := range stations {
		regions[s.Region] = struct{}{}
	}
	c.detail = fmt.Sprintf("%d regions", len(regions))
	return c
}

func (a *app) checkQuality(path string) fileCheck {
	c := fileCheck{path: path}
	quality, rejected, err := filestore.ReadFile(path, a.separator, filestore.ReadQuality)
	c.valid, c.rejected, c.err = len(quality), rejected, err

	adjusted := 0
	for _, q := range quality {
		if q.DoubleMassAdjusted {
			adjusted++
		}
	}
	c.detail = fmt.Sprintf("%d double-mass adjusted", adjusted)
	return c
}

func (a *app) checkSeries(path string) fileCheck {
	c := fileCheck{path: path}
	observations, rejected, err := filestore.ReadFile(path, a.separator, filestore.ReadSeries)
	c.valid, c.rejected, c.err = len(observations), rejected, err
	if len(observations) == 0 {
		return c
	}

	stations := make(map[string]struct{})
	synthetic := 0
	first, last := observations[0].Date, observations[0].Date
	for _, obs := range observations {
		stations[obs.StationID] = struct{}{}
		if obs.IsSynthetic {
			synthetic++
		}
		if obs.Date.Before(first) {
			first = obs.Date
		}
		if obs.Date.After(last) {
			last = obs.Date
		}
	}
	c.detail = fmt.Sprintf("%d stations, %d synthetic, %s to %s",
		len(stations), synthetic, first.Format("2006-01-02"), last.Format("2006-01-02"))
	return c
}

func printCheck(w io.Writer, c fileCheck) {
	fmt.Fprintf(w, "%s\n", c.path)
	if c.err != nil {
		fmt.Fprintf(w, "  error: %v\n", c.err)
		return
	}

	fmt.Fprintf(w, "  valid rows:    %d\n", c.valid)
	fmt.Fprintf(w, "  rejected rows: %d\n", len(c.rejected))
	if c.detail != "" {
		fmt.Fprintf(w, "  %s\n", c.detail)
	}
	for i, r := range c.rejected {
		if i == maxRejectedShown {
			fmt.Fprintf(w, "  ... and %d more\n", len(c.rejected)-maxRejectedShown)
			break
		}
		fmt.Fprintf(w, "  - %v\n", r)
	}
}
