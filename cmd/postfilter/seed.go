package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
	contentuc "github.com/kailas-cloud/postfilter/internal/usecase/content"
)

type seedFile struct {
	Terms []seedTerm `yaml:"terms"`
	Items []seedItem `yaml:"items"`
}

type seedTerm struct {
	ID       uint64 `yaml:"id"`
	Taxonomy string `yaml:"taxonomy"`
	Name     string `yaml:"name"`
	Slug     string `yaml:"slug"`
	Parent   uint64 `yaml:"parent"`
}

type seedItem struct {
	ID       uint64              `yaml:"id"`
	PostType string              `yaml:"post_type"`
	Status   string              `yaml:"status"`
	Author   uint64              `yaml:"author"`
	Title    string              `yaml:"title"`
	Excerpt  string              `yaml:"excerpt"`
	Link     string              `yaml:"link"`
	Date     time.Time           `yaml:"date"`
	Modified time.Time           `yaml:"modified"`
	Terms    map[string][]uint64 `yaml:"terms"`
	Meta     map[string][]string `yaml:"meta"`
	Numeric  map[string]float64  `yaml:"numeric"`
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load terms and items from a YAML file into the content index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(filepath.Clean(file))
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			terms, items, err := parseSeed(data)
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := contentuc.New(a.content, a.cfg.Listing.Schema())
			results, err := svc.Seed(cmd.Context(), terms, items)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "%s %d: %v\n", r.Kind, r.ID, r.Err)
				}
			}
			fmt.Fprintf(out, "seeded %d terms and %d items, %d failed\n", len(terms), len(items), failed)
			if failed > 0 {
				return fmt.Errorf("%d records failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "YAML file with terms and items")
	return cmd
}

// parseSeed decodes a seed file. Records that fail validation abort the
// whole file so nothing is written from a half-valid seed.
func parseSeed(data []byte) ([]domcontent.Term, []domcontent.Item, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse seed: %w", err)
	}

	terms := make([]domcontent.Term, 0, len(f.Terms))
	for i, t := range f.Terms {
		term, err := domcontent.NewTerm(t.ID, t.Taxonomy, t.Name, t.Slug, t.Parent)
		if err != nil {
			return nil, nil, fmt.Errorf("terms[%d]: %w", i, err)
		}
		terms = append(terms, term)
	}

	items := make([]domcontent.Item, 0, len(f.Items))
	for i, it := range f.Items {
		item, err := domcontent.New(it.ID, domcontent.Fields{
			PostType: it.PostType,
			Status:   domcontent.Status(it.Status),
			Author:   it.Author,
			Title:    it.Title,
			Excerpt:  it.Excerpt,
			Link:     it.Link,
			Date:     it.Date,
			Modified: it.Modified,
			Terms:    it.Terms,
			Meta:     it.Meta,
			Numeric:  it.Numeric,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return terms, items, nil
}
