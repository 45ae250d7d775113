package db

import (
	"testing"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		prefix  string
		table   string
		want    string
	}{
		{name: "postgres without prefix", dialect: Postgres, table: "users", want: `"users"`},
		{name: "postgres with prefix", dialect: Postgres, prefix: "acme", table: "users", want: `"acme"."users"`},
		{name: "mysql with prefix", dialect: MySQL, prefix: "acme", table: "users", want: "`acme`.`users`"},
		{name: "sqlite folds prefix", dialect: SQLite, prefix: "acme", table: "users", want: `"acme_users"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.TableName(tt.prefix, tt.table); got != tt.want {
				t.Errorf("TableName() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestQuoteEscapes(t *testing.T) {
	if got := Postgres.Quote(`we"ird`); got != `"we""ird"` {
		t.Errorf("Quote() = %s", got)
	}
	if got := MySQL.Column("t", "owner.name"); got != "`t`.`owner.name`" {
		t.Errorf("Column() = %s", got)
	}
}

func TestBuilderPlaceholders(t *testing.T) {
	query, args, err := Postgres.Builder().Select("id").From("users").Where("id = ?", 7).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	if query != "SELECT id FROM users WHERE id = $1" {
		t.Errorf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != 7 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		prefix        string
		wantNamespace string
		wantTable     string
	}{
		{name: "no prefix", dialect: SQLite, wantTable: "users"},
		{name: "postgres schema", dialect: Postgres, prefix: "acme", wantNamespace: "acme", wantTable: "users"},
		{name: "sqlite folds prefix", dialect: SQLite, prefix: "acme", wantTable: "acme_users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, table := tt.dialect.Locate(tt.prefix, "users")
			if ns != tt.wantNamespace || table != tt.wantTable {
				t.Errorf("Locate() = %q, %q, want %q, %q", ns, table, tt.wantNamespace, tt.wantTable)
			}
		})
	}
}
