package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names.
const (
	documentsTable  = "documents"
	versionsTable   = "versions"
	activitiesTable = "activities"
)

var (
	// DocumentsColumns holds the columns for the "documents" table.
	DocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 128},
		{Name: "user_id", Type: field.TypeString, Size: 128},
		{Name: "title", Type: field.TypeString},
		{Name: "content_ref", Type: field.TypeString, SchemaType: map[string]string{dialect.Postgres: "text"}},
		{Name: "file_type", Type: field.TypeString},
		{Name: "file_size", Type: field.TypeInt64, Default: 0},
		{Name: "status", Type: field.TypeString, Size: 32, Default: "pending"},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// DocumentsTable holds the schema information for the "documents" table.
	DocumentsTable = &schema.Table{
		Name:       documentsTable,
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "document_user_id_created_at", Columns: []*schema.Column{DocumentsColumns[1], DocumentsColumns[7]}},
		},
	}
	// VersionsColumns holds the columns for the "versions" table.
	VersionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 128},
		{Name: "content", Type: field.TypeString, SchemaType: map[string]string{dialect.Postgres: "text"}},
		{Name: "changes", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "document_id", Type: field.TypeString, Size: 128},
	}
	// VersionsTable holds the schema information for the "versions" table.
	VersionsTable = &schema.Table{
		Name:       versionsTable,
		Columns:    VersionsColumns,
		PrimaryKey: []*schema.Column{VersionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "versions_documents_versions",
				Columns:    []*schema.Column{VersionsColumns[4]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "version_document_id_created_at", Columns: []*schema.Column{VersionsColumns[4], VersionsColumns[3]}},
		},
	}
	// ActivitiesColumns holds the columns for the "activities" table.
	ActivitiesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 128},
		{Name: "user_id", Type: field.TypeString, Size: 128},
		{Name: "action", Type: field.TypeString, Size: 32},
		{Name: "details", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "document_id", Type: field.TypeString, Size: 128},
	}
	// ActivitiesTable holds the schema information for the "activities" table.
	ActivitiesTable = &schema.Table{
		Name:       activitiesTable,
		Columns:    ActivitiesColumns,
		PrimaryKey: []*schema.Column{ActivitiesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "activities_documents_activities",
				Columns:    []*schema.Column{ActivitiesColumns[5]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "activity_document_id_action_created_at", Columns: []*schema.Column{ActivitiesColumns[5], ActivitiesColumns[2], ActivitiesColumns[4]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DocumentsTable,
		VersionsTable,
		ActivitiesTable,
	}
)

func init() {
	VersionsTable.ForeignKeys[0].RefTable = DocumentsTable
	ActivitiesTable.ForeignKeys[0].RefTable = DocumentsTable
}

// Migrate creates or updates the tables in place.
func Migrate(ctx context.Context, db *DB) error {
	m, err := schema.NewMigrate(db.Driver, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("ent/migrate: create schema: %w", err)
	}
	return nil
}
