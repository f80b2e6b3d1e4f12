//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranslate/internal/dsl"
	"github.com/tordrt/dbtranslate/internal/schema"
)

var fixtureDDL = []string{
	`CREATE TABLE it_users (
		id INT PRIMARY KEY AUTO_INCREMENT,
		email VARCHAR(191) NOT NULL UNIQUE,
		created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE it_posts (
		id INT PRIMARY KEY AUTO_INCREMENT,
		user_id INT NOT NULL,
		title VARCHAR(255),
		KEY it_posts_title_idx (title),
		CONSTRAINT it_posts_user_fk FOREIGN KEY (user_id) REFERENCES it_users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE it_memberships (
		a INT NOT NULL,
		b INT NOT NULL,
		tag VARCHAR(20),
		PRIMARY KEY (a, b),
		UNIQUE KEY it_memberships_b_tag (b, tag)
	)`,
}

func testConnString() string {
	// Use environment variable if set, otherwise use default test connection string
	connString := os.Getenv("MYSQL_TEST_URL")
	if connString == "" {
		connString = "root:testpassword@tcp(localhost:3306)/testdb"
	}
	return connString
}

func setupFixture(t *testing.T, ctx context.Context) {
	t.Helper()

	client, err := NewMySQLClient(ctx, testConnString())
	require.NoError(t, err, "failed to connect to MySQL")
	t.Cleanup(func() { _ = client.Close() })

	drop := func() {
		for _, table := range []string{"it_posts", "it_users", "it_memberships"} {
			_, _ = client.GetDB().ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
		}
	}
	drop()
	t.Cleanup(drop)

	for _, ddl := range fixtureDDL {
		_, err := client.GetDB().ExecContext(ctx, ddl)
		require.NoError(t, err)
	}
}

func findTable(tables []schema.Table, name string) *schema.Table {
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i]
		}
	}
	return nil
}

func TestMySQLIntrospection(t *testing.T) {
	ctx := context.Background()
	setupFixture(t, ctx)

	tables, failures, err := Introspect(ctx, testConnString(), nil)
	require.NoError(t, err)
	assert.Empty(t, failures)

	users := findTable(tables, "it_users")
	require.NotNil(t, users)
	require.Len(t, users.Columns, 3)
	assert.Equal(t, schema.KeyPrimary, users.Columns[0].Key)
	assert.Equal(t, "auto_increment", users.Columns[0].Extra)
	assert.Equal(t, schema.KeyUnique, users.Columns[1].Key)
	assert.True(t, users.Columns[2].Nullable)
	require.NotNil(t, users.Columns[2].Default)
	assert.Equal(t, "CURRENT_TIMESTAMP", *users.Columns[2].Default)

	posts := findTable(tables, "it_posts")
	require.NotNil(t, posts)
	var fk *schema.ForeignKey
	for _, key := range posts.Keys {
		if k, ok := key.(schema.ForeignKey); ok {
			fk = &k
		}
	}
	require.NotNil(t, fk)
	assert.Equal(t, "it_posts_user_fk", fk.ConstraintName)
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, "it_users", fk.ReferencedTable)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
	assert.Equal(t, "CASCADE", fk.OnDelete)
	assert.Contains(t, posts.Keys, schema.Key(schema.Index{Name: "it_posts_title_idx", Columns: []string{"title"}}))

	memberships := findTable(tables, "it_memberships")
	require.NotNil(t, memberships)
	assert.Contains(t, memberships.Keys, schema.Key(schema.UniqueComposite{
		ConstraintName: "it_memberships_b_tag",
		Columns:        []string{"b", "tag"},
	}))
}

func TestMySQLPrismaRoundTrip(t *testing.T) {
	ctx := context.Background()
	setupFixture(t, ctx)

	tables, _, err := Introspect(ctx, testConnString(), nil)
	require.NoError(t, err)

	built := dsl.NewBuilder().Build(tables)
	parsed, err := dsl.ParseString(dsl.Format(built))
	require.NoError(t, err)
	assert.Equal(t, dsl.Format(built), dsl.Format(parsed))

	users := parsed.ModelByName("it_users")
	require.NotNil(t, users)
	assert.Equal(t, "now()", *users.FieldByName("created_at").Default)

	memberships := parsed.ModelByName("it_memberships")
	require.NotNil(t, memberships)
	assert.Contains(t, memberships.Directives, "  @@id([a, b])")
}
