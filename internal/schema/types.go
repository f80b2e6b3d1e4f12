package schema

// KeyFlag is the per-column key marker reported by the column catalog
type KeyFlag int

const (
	KeyNone KeyFlag = iota
	KeyPrimary
	KeyUnique
	KeyMultiple
)

// ParseKeyFlag converts the catalog column_key value (PRI, UNI, MUL) to a KeyFlag
func ParseKeyFlag(s string) KeyFlag {
	switch s {
	case "PRI":
		return KeyPrimary
	case "UNI":
		return KeyUnique
	case "MUL":
		return KeyMultiple
	default:
		return KeyNone
	}
}

// String returns the catalog spelling of the flag, empty for KeyNone
func (k KeyFlag) String() string {
	switch k {
	case KeyPrimary:
		return "PRI"
	case KeyUnique:
		return "UNI"
	case KeyMultiple:
		return "MUL"
	default:
		return ""
	}
}

// Table represents a database table
type Table struct {
	Name    string
	Columns []Column
	Keys    []Key
}

// Column represents a table column as described by the catalog
type Column struct {
	Field    string
	Type     string
	Nullable bool
	Key      KeyFlag
	Default  *string
	Extra    string
}

// Key is one grouped constraint or index of a table.
// Implemented by ForeignKey, UniqueComposite and Index.
type Key interface {
	KeyName() string
}

// ForeignKey represents a (possibly multi-column) foreign key constraint
type ForeignKey struct {
	ConstraintName    string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          string
	OnUpdate          string
}

// KeyName returns the constraint name
func (k ForeignKey) KeyName() string { return k.ConstraintName }

// UniqueComposite represents a unique constraint over one or more columns
type UniqueComposite struct {
	ConstraintName string
	Columns        []string
}

// KeyName returns the constraint name
func (k UniqueComposite) KeyName() string { return k.ConstraintName }

// Index represents a non-unique secondary index
type Index struct {
	Name    string
	Columns []string
}

// KeyName returns the index name
func (k Index) KeyName() string { return k.Name }

// ColumnByName returns the named column, or nil
func (t *Table) ColumnByName(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Field == name {
			return &t.Columns[i]
		}
	}
	return nil
}
