package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://a@b/c", Host: "ignored"},
			want: "postgres://a@b/c",
		},
		{
			name: "defaults",
			cfg:  ClientConfig{Host: "db", Database: "arbwatch", User: "u", Password: "p"},
			want: "postgres://u:p@db:5432/arbwatch?sslmode=disable",
		},
		{
			name: "custom port and ssl",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "d", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/d?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := listQuery("SELECT x FROM t WHERE market_id = $1", []any{"m1"}, "detected_at",
		domain.ListOpts{Since: &since, Limit: 10, Offset: 20})

	want := "SELECT x FROM t WHERE market_id = $1 AND detected_at >= $2 ORDER BY detected_at DESC LIMIT $3 OFFSET $4"
	if q != want {
		t.Errorf("query = %q\nwant    %q", q, want)
	}
	if !reflect.DeepEqual(args, []any{"m1", since, 10, 20}) {
		t.Errorf("args = %v", args)
	}

	q, args = listQuery("SELECT x FROM t WHERE TRUE", nil, "created_at", domain.ListOpts{})
	if q != "SELECT x FROM t WHERE TRUE ORDER BY created_at DESC" || len(args) != 0 {
		t.Errorf("empty opts: %q %v", q, args)
	}
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Fatalf("names = %v", names)
	}
	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"opportunities", "audit_log"} {
		if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("migration does not create %s", table)
		}
	}
}

func TestInsertArgs(t *testing.T) {
	local := decimal.NewFromInt(38)
	opp := domain.Opportunity{ID: "id", MarketID: "m", BuyPriceLocal: &local}
	args := insertArgs(opp)
	if len(args) != 15 {
		t.Fatalf("len(args) = %d, want 15 to match the insert", len(args))
	}
	if nd := args[6].(decimal.NullDecimal); !nd.Valid || !nd.Decimal.Equal(local) {
		t.Errorf("buy local = %+v", nd)
	}
	if nd := args[7].(decimal.NullDecimal); nd.Valid {
		t.Errorf("sell local should be NULL, got %+v", nd)
	}
	if strings.Count(oppInsert, "$") != len(args) {
		t.Errorf("placeholders = %d, args = %d", strings.Count(oppInsert, "$"), len(args))
	}
}
