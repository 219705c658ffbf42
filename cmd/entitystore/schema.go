package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
	"github.com/asakaida/entitystore/internal/services/schemafile"
)

var exportFormat string

var applyCmd = &cobra.Command{
	Use:   "apply <schema-file>",
	Short: "Create or alter entity types from a schema file",
	Long: `Create or alter the entity types declared in a schema file.
New entity types get their tables; existing ones are altered attribute by
attribute. The whole file is applied in one transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		known, err := storedEntityTypes(cmd)
		if err != nil {
			return err
		}
		defs, err := schemafile.Load(args[0], known...)
		if err != nil {
			return err
		}
		applied, err := metadata.ApplySchema(cmd.Context(), defs...)
		if err != nil {
			return err
		}
		for _, et := range applied {
			pterm.Success.Printfln("Applied entity type %s (%d attributes)", et.ID, len(et.AtomicAttributes()))
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <schema-file>",
	Short: "Validate a schema file against the stored entity types",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		known, err := storedEntityTypes(cmd)
		if err != nil {
			return err
		}
		defs, err := schemafile.Load(args[0], known...)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s declares %d valid entity types", args[0], len(defs))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all stored entity types",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := schemafile.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		defs, err := metadata.ListEntityTypes(cmd.Context())
		if err != nil {
			return err
		}
		return schemafile.Encode(cmd.OutOrStdout(), format, defs)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <entity-type>",
	Short: "Show the attributes and storage of an entity type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		et, err := metadata.GetEntityType(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		namer := postgres.NewNamer(cfg.Store.MaxIdentifierLength)
		table, err := describeTable(et, namer)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entity type: %s\nTable: %s\n", et.ID, namer.TableName(et))
		fmt.Fprint(cmd.OutOrStdout(), table)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <entity-type>",
	Short: "Drop an entity type and all of its entities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := metadata.DeleteEntityType(cmd.Context(), args[0]); err != nil {
			return err
		}
		pterm.Success.Printfln("Deleted entity type %s", args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(schemafile.FormatDSL), "Output format (schema, yaml, toml, json)")
}

func storedEntityTypes(cmd *cobra.Command) ([]string, error) {
	defs, err := metadata.ListEntityTypes(cmd.Context())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return ids, nil
}

// describeTable renders one row per atomic attribute
func describeTable(et *entities.EntityType, namer *postgres.Namer) (string, error) {
	data := pterm.TableData{{"Attribute", "Type", "Storage", "Flags"}}
	for _, a := range et.AtomicAttributes() {
		data = append(data, []string{a.Name, describeType(a), describeStorage(et, a, namer), describeFlags(et, a)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func describeType(a *entities.Attribute) string {
	switch {
	case a.MappedBy != nil:
		return fmt.Sprintf("%s @%s.%s", a.Type, a.RefEntityType.ID, a.MappedBy.Name)
	case a.RefEntityType != nil:
		return fmt.Sprintf("%s @%s", a.Type, a.RefEntityType.ID)
	case a.Type == entities.AttributeTypeEnum:
		return fmt.Sprintf("%s (%s)", a.Type, strings.Join(a.EnumOptions, ", "))
	case a.Type.IsBoundedString():
		return a.Type.String() + "(" + strconv.Itoa(a.MaxStringLength()) + ")"
	default:
		return a.Type.String()
	}
}

func describeStorage(et *entities.EntityType, a *entities.Attribute, namer *postgres.Namer) string {
	switch {
	case a.Type.HasJunctionTable():
		return "table " + namer.JunctionTableName(et, a)
	case a.Type.IsStored():
		return "column " + namer.ColumnName(a)
	default:
		return "-"
	}
}

func describeFlags(et *entities.EntityType, a *entities.Attribute) string {
	var flags []string
	if a.Name == et.IDAttributeName {
		flags = append(flags, "id")
	}
	if a.Auto {
		flags = append(flags, "auto")
	}
	if a.Nullable {
		flags = append(flags, "nullable")
	}
	if a.Unique {
		flags = append(flags, "unique")
	}
	if a.ReadOnly {
		flags = append(flags, "readonly")
	}
	return strings.Join(flags, " ")
}
