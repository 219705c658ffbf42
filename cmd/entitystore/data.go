package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
)

// queryFlags are the filter, sort and paging flags shared by the data
// commands
type queryFlags struct {
	eq     []string
	like   []string
	search string
	sort   []string
	limit  int
	offset int
}

func (f *queryFlags) register(cmd *cobra.Command, paged bool) {
	cmd.Flags().StringArrayVar(&f.eq, "eq", nil, "Filter attr=value, repeatable; a dotted attr follows references")
	cmd.Flags().StringArrayVar(&f.like, "like", nil, "Filter attr=substring, repeatable")
	cmd.Flags().StringVar(&f.search, "search", "", "Search all string attributes")
	if paged {
		cmd.Flags().StringArrayVar(&f.sort, "sort", nil, "Sort by attr or attr:desc, repeatable")
		cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of entities (default STORE_PAGE_SIZE)")
		cmd.Flags().IntVar(&f.offset, "offset", 0, "Number of entities to skip")
	}
}

// query builds an entity query; all filters are joined with AND
func (f *queryFlags) query() (*entities.Query, error) {
	q := entities.NewQuery()
	for _, kv := range f.eq {
		attr, value, err := splitFilter("eq", kv)
		if err != nil {
			return nil, err
		}
		q.Eq(attr, value)
	}
	for _, kv := range f.like {
		attr, value, err := splitFilter("like", kv)
		if err != nil {
			return nil, err
		}
		q.Like(attr, value)
	}
	if f.search != "" {
		q.Search("", f.search)
	}
	for _, s := range f.sort {
		attr, dir, _ := strings.Cut(s, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			q.SortBy(attr, entities.Ascending)
		case "desc":
			q.SortBy(attr, entities.Descending)
		default:
			return nil, fmt.Errorf("invalid sort direction %q", dir)
		}
	}
	if f.limit < 0 || f.offset < 0 {
		return nil, fmt.Errorf("limit and offset must not be negative")
	}
	return q.WithPageSize(f.limit).WithOffset(f.offset), nil
}

func splitFilter(name, kv string) (string, string, error) {
	attr, value, ok := strings.Cut(kv, "=")
	if !ok || attr == "" {
		return "", "", fmt.Errorf("invalid --%s filter %q, expected attr=value", name, kv)
	}
	return attr, value, nil
}

var (
	sqlFlags   queryFlags
	countFlags queryFlags
	findFlags  queryFlags
)

var sqlCmd = &cobra.Command{
	Use:   "sql <entity-type>",
	Short: "Print the SQL a query compiles to without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		et, err := metadata.GetEntityType(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		q, err := sqlFlags.query()
		if err != nil {
			return err
		}
		gen := postgres.NewQueryGenerator(postgres.NewNamer(cfg.Store.MaxIdentifierLength), cfg.Store.PageSize)
		stmt, err := gen.SelectSQL(et, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stmt.SQL)
		for i, arg := range stmt.Args {
			fmt.Fprintf(cmd.OutOrStdout(), "$%d = %v\n", i+1, arg)
		}
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count <entity-type>",
	Short: "Count the entities matching a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := metadata.Repository(cmd.Context(), pg.DB, args[0])
		if err != nil {
			return err
		}
		q, err := countFlags.query()
		if err != nil {
			return err
		}
		n, err := repo.Count(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <entity-type>",
	Short: "Print the entities matching a query as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := metadata.Repository(cmd.Context(), pg.DB, args[0])
		if err != nil {
			return err
		}
		q, err := findFlags.query()
		if err != nil {
			return err
		}
		found, err := repo.FindAll(cmd.Context(), q)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, e := range found {
			if err := enc.Encode(renderEntity(e)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	sqlFlags.register(sqlCmd, true)
	countFlags.register(countCmd, false)
	findFlags.register(findCmd, true)
}

// renderEntity returns the values of an entity with references replaced
// by their ids
func renderEntity(e *entities.Entity) map[string]interface{} {
	out := make(map[string]interface{})
	for _, name := range e.AttributeNames() {
		switch v := e.Get(name).(type) {
		case *entities.Entity:
			if v == nil {
				out[name] = nil
			} else {
				out[name] = v.IDValue()
			}
		case []*entities.Entity:
			ids := make([]interface{}, len(v))
			for i, ref := range v {
				ids[i] = ref.IDValue()
			}
			out[name] = ids
		case time.Time:
			out[name] = v.Format(time.RFC3339)
		default:
			out[name] = v
		}
	}
	return out
}
