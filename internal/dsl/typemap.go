package dsl

import "strings"

// splitRawType breaks a catalog type such as "decimal(10,2) unsigned" into its
// lowercase base name, its parenthesised argument suffix and the unsigned marker
func splitRawType(raw string) (base, args string, unsigned bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	unsigned = strings.Contains(lower, " unsigned")

	end := strings.IndexAny(lower, "( ")
	if end == -1 {
		return lower, "", unsigned
	}
	base = lower[:end]

	if lower[end] == '(' {
		if closing := strings.IndexByte(lower[end:], ')'); closing != -1 {
			args = strings.TrimSpace(raw)[end : end+closing+1]
		}
	}
	return base, args, unsigned
}

// FieldType maps a catalog column type to a scalar field type, without the optional marker
func FieldType(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "tinyint(1)") {
		return "Boolean"
	}

	base, _, _ := splitRawType(raw)
	switch base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "year":
		return "Int"
	case "float", "double", "real":
		return "Float"
	case "decimal", "numeric":
		return "Decimal"
	case "date", "time", "datetime", "timestamp":
		return "DateTime"
	case "bool", "boolean":
		return "Boolean"
	case "json":
		return "Json"
	default:
		return "String"
	}
}

// DBAnnotation maps a catalog column type to the native type written after @db.
// It returns "" for types with no native counterpart.
func DBAnnotation(raw string) string {
	base, args, unsigned := splitRawType(raw)

	integer := func(name string) string {
		if unsigned {
			return "Unsigned" + name
		}
		return name
	}

	// Integer and floating types take no arguments as native types; MySQL's
	// display width (int(11)) and float precision are not part of the type.
	switch base {
	case "tinyint":
		return integer("TinyInt")
	case "smallint":
		return integer("SmallInt")
	case "mediumint":
		return integer("MediumInt")
	case "int", "integer":
		return integer("Int")
	case "bigint":
		return integer("BigInt")
	case "float":
		return "Float"
	case "double", "real":
		return "Double"
	case "decimal", "numeric":
		return "Decimal" + args
	case "date":
		return "Date"
	case "datetime":
		return "DateTime" + args
	case "time":
		return "Time" + args
	case "timestamp":
		return "Timestamp" + args
	case "year":
		return "Year"
	case "varchar":
		return "VarChar" + args
	case "char":
		return "Char" + args
	case "tinytext":
		return "TinyText"
	case "text":
		return "Text"
	case "mediumtext":
		return "MediumText"
	case "longtext":
		return "LongText"
	case "json":
		return "Json"
	case "binary":
		return "Binary" + args
	case "varbinary":
		return "VarBinary" + args
	case "tinyblob":
		return "TinyBlob"
	case "blob":
		return "Blob"
	case "mediumblob":
		return "MediumBlob"
	case "longblob":
		return "LongBlob"
	case "bit":
		return "Bit" + args
	default:
		return ""
	}
}

// DefaultExpr maps a catalog default literal to a @default expression.
// fieldType is the scalar type without the optional marker.
func DefaultExpr(literal *string, fieldType string) *string {
	if literal == nil {
		return nil
	}

	v := *literal
	switch {
	case strings.HasPrefix(strings.ToUpper(v), "CURRENT_TIMESTAMP"):
		v = "now()"
	case v == "1" && fieldType == "Boolean":
		v = "true"
	case v == "0" && fieldType == "Boolean":
		v = "false"
	}
	return &v
}
