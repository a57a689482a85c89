// Package schema describes tables as data: MetaData, Table, Column and
// ForeignKey, plus the CREATE/DROP TABLE statements and DBML export
// derived from them.
package schema
