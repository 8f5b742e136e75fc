package querybuilder

// InsertRows holds the value tuples of a multi-row insert
type InsertRows [][]interface{}
