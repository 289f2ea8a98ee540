package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/postfilter/internal/config"
	dbRedis "github.com/kailas-cloud/postfilter/internal/db/redis"
	"github.com/kailas-cloud/postfilter/internal/domain/archive"
	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
	contentrepo "github.com/kailas-cloud/postfilter/internal/repository/content"
)

type submissionFile struct {
	Widget   string          `yaml:"widget"`
	Criteria []criterionSpec `yaml:"criteria"`
	Sort     sortSpec        `yaml:"sort"`
	Search   string          `yaml:"search"`
	Page     int             `yaml:"page"`
	Archive  archive.Context `yaml:"archive"`
}

type criterionSpec struct {
	FieldType string   `yaml:"field_type"`
	Key       string   `yaml:"key"`
	Values    []string `yaml:"values"`
	Logic     string   `yaml:"logic"`
}

type sortSpec struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction"`
	MetaKey   string `yaml:"meta_key"`
}

type compileOutput struct {
	Query  query.Compiled `json:"query"`
	Empty  bool           `json:"empty"`
	Filter string         `json:"filter,omitempty"`
}

func newCompileCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a filter submission from YAML and print the query",
		Long: `compile runs a submission through the criteria reducer and query compiler
without touching any store. The submission's widget must exist in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(filepath.Clean(file))
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			cfg, err := config.Load(config.GetEnv())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			widgets, err := cfg.Listing.Registry()
			if err != nil {
				return fmt.Errorf("build widgets: %w", err)
			}
			return compileSubmission(cmd.OutOrStdout(), data, widgets, cfg.Listing.Schema())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "submission.yaml", "YAML file with the submission")
	return cmd
}

// compileSubmission compiles the submission in data and writes it as
// indented JSON together with the search filter it translates to.
func compileSubmission(out io.Writer, data []byte, widgets *widget.Registry, schema *query.Schema) error {
	var f submissionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse submission: %w", err)
	}
	w, err := widgets.Lookup(f.Widget)
	if err != nil {
		return err
	}

	criteria := make([]criterion.Criterion, 0, len(f.Criteria))
	for i, c := range f.Criteria {
		cr, err := criterion.New(criterion.FieldType(c.FieldType), c.Key, c.Values, criterion.ParseLogic(c.Logic))
		if err != nil {
			return fmt.Errorf("criteria[%d]: %w", i, err)
		}
		criteria = append(criteria, cr)
	}

	var sort query.Sort
	if f.Sort.Field != "" || f.Sort.MetaKey != "" {
		sort = query.Sort{Field: f.Sort.Field, Direction: query.ParseDirection(f.Sort.Direction), MetaKey: f.Sort.MetaKey}
	}

	q := query.Compile(query.Input{
		Criteria:         criteria,
		Sort:             sort,
		Search:           f.Search,
		PostType:         w.PostType,
		Page:             f.Page,
		GroupLogic:       w.GroupLogic,
		DynamicFiltering: w.DynamicFiltering,
		Archive:          f.Archive,
		Schema:           schema,
	})

	res := compileOutput{Query: q, Empty: q.IsEmpty()}
	if !res.Empty {
		expr, err := contentrepo.Expression(q, w.PostType)
		if err != nil {
			return fmt.Errorf("translate query: %w", err)
		}
		res.Filter = dbRedis.FilterQuery(expr)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
