package service

import (
	"strings"

	"datalink/internal/domain"
)

// sampleColumns and sampleRows are the canned result of any read query.
var sampleColumns = []string{"id", "name", "email", "created_at", "status"}

func sampleRows() []domain.Row {
	return []domain.Row{
		{"id": 1, "name": "John Doe", "email": "john@example.com", "created_at": "2024-01-15", "status": "active"},
		{"id": 2, "name": "Jane Smith", "email": "jane@example.com", "created_at": "2024-01-16", "status": "inactive"},
		{"id": 3, "name": "Bob Johnson", "email": "bob@example.com", "created_at": "2024-01-17", "status": "active"},
		{"id": 4, "name": "Alice Brown", "email": "alice@example.com", "created_at": "2024-01-18", "status": "pending"},
		{"id": 5, "name": "Charlie Davis", "email": "charlie@example.com", "created_at": "2024-01-19", "status": "active"},
	}
}

// statementClass is how the simulator treats a statement.
type statementClass int

const (
	statementOther statementClass = iota
	statementRead
	statementWrite
)

// classify does a substring match on the lower-cased text. Any mention of
// "select" wins, even inside a write such as INSERT ... SELECT.
func classify(sql string) statementClass {
	lowered := strings.ToLower(strings.TrimSpace(sql))
	switch {
	case strings.Contains(lowered, "select"):
		return statementRead
	case strings.Contains(lowered, "insert"),
		strings.Contains(lowered, "update"),
		strings.Contains(lowered, "delete"):
		return statementWrite
	default:
		return statementOther
	}
}
