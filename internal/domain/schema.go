package domain

import "time"

// Column describes one table column.
type Column struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"`
	IsPrimaryKey bool   `json:"isPrimaryKey" yaml:"primary_key"`
	IsNullable   bool   `json:"isNullable" yaml:"nullable"`
}

// Table describes one table and its columns.
type Table struct {
	Name     string   `json:"name" yaml:"name"`
	Columns  []Column `json:"columns" yaml:"columns"`
	RowCount *int     `json:"rowCount,omitempty" yaml:"row_count"`
}

// View names a view.
type View struct {
	Name string `json:"name" yaml:"name"`
}

// Procedure names a stored procedure.
type Procedure struct {
	Name string `json:"name" yaml:"name"`
}

// SchemaSnapshot is the full object tree of one connection. It is replaced
// wholesale on refresh and never patched.
type SchemaSnapshot struct {
	ConnectionID string      `json:"connectionId"`
	LoadedAt     time.Time   `json:"loadedAt"`
	Tables       []Table     `json:"tables"`
	Views        []View      `json:"views"`
	Procedures   []Procedure `json:"procedures"`
}

// Clone returns a deep copy of s.
func (s *SchemaSnapshot) Clone() *SchemaSnapshot {
	out := *s
	out.Tables = make([]Table, len(s.Tables))
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	out.Views = append([]View{}, s.Views...)
	out.Procedures = append([]Procedure{}, s.Procedures...)
	return &out
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := t
	out.Columns = append([]Column{}, t.Columns...)
	if t.RowCount != nil {
		n := *t.RowCount
		out.RowCount = &n
	}
	return out
}
