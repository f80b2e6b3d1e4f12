package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelation(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		want    *Relation
		wantErr bool
	}{
		{
			name: "fields and references",
			attr: "@relation(fields: [userId], references: [id])",
			want: &Relation{Fields: []string{"userId"}, References: []string{"id"}},
		},
		{
			name: "all arguments",
			attr: `@relation(fields: [a, b], references: [x, y], map: "fk_ab", onDelete: Cascade, onUpdate: SetNull)`,
			want: &Relation{
				Map:        "fk_ab",
				Fields:     []string{"a", "b"},
				References: []string{"x", "y"},
				OnDelete:   "Cascade",
				OnUpdate:   "SetNull",
			},
		},
		{
			name: "map containing a comma",
			attr: `@relation(map: "fk, legacy", fields: [a], references: [b])`,
			want: &Relation{Map: "fk, legacy", Fields: []string{"a"}, References: []string{"b"}},
		},
		{
			name: "empty",
			attr: "@relation()",
			want: &Relation{},
		},
		{
			name:    "unknown argument",
			attr:    `@relation("Author", fields: [a], references: [b])`,
			wantErr: true,
		},
		{
			name:    "unknown key",
			attr:    `@relation(name: "x")`,
			wantErr: true,
		},
		{
			name:    "list without brackets",
			attr:    "@relation(fields: a, references: [b])",
			wantErr: true,
		},
		{
			name:    "not closed",
			attr:    "@relation(fields: [a]",
			wantErr: true,
		},
		{
			name:    "not a relation",
			attr:    "@default(1)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelation(tt.attr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelationString(t *testing.T) {
	tests := []struct {
		name string
		rel  Relation
		want string
	}{
		{
			name: "fields only",
			rel:  Relation{Fields: []string{"userId"}, References: []string{"id"}},
			want: "@relation(fields: [userId], references: [id])",
		},
		{
			name: "ordered arguments",
			rel:  Relation{OnUpdate: "Cascade", OnDelete: "SetNull", Map: "m", References: []string{"id"}, Fields: []string{"a"}},
			want: `@relation(fields: [a], references: [id], map: "m", onDelete: SetNull, onUpdate: Cascade)`,
		},
		{
			name: "map only",
			rel:  Relation{Map: "fk"},
			want: `@relation(map: "fk")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rel.String())

			back, err := ParseRelation(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.rel, *back)
		})
	}
}

func TestUniqueFlagString(t *testing.T) {
	assert.Equal(t, "@unique", UniqueFlag{}.String())
	assert.Equal(t, `@unique(map: "users_email_key")`, UniqueFlag{Map: "users_email_key"}.String())
}
