package service_test

import (
	"testing"

	"datalink/internal/service"
)

func TestFormatSQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "select * from users where id = 1",
			want: "SELECT *\nFROM users\nWHERE id = 1",
		},
		{
			in:   "SELECT status, count(*) FROM users GROUP BY status HAVING count(*) > 1 ORDER BY status",
			want: "SELECT status, count(*)\nFROM users\nGROUP BY status\nHAVING count(*) > 1\nORDER BY status",
		},
		{
			in:   "select a from t order   by a",
			want: "SELECT a\nFROM t\nORDER BY a",
		},
		{
			in:   "select created_from from t",
			want: "SELECT created_from\nFROM t",
		},
		{
			in:   "from t",
			want: "FROM t",
		},
	}
	for _, tt := range tests {
		if got := service.FormatSQL(tt.in); got != tt.want {
			t.Errorf("FormatSQL(%q) =\n%q\nwant\n%q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSQL_Idempotent(t *testing.T) {
	inputs := []string{
		"select * from users where id = 1 order by name",
		"SELECT a\n\nFROM b\n   WHERE c",
		"update t set a = 1 where b = 'from here'",
	}
	for _, in := range inputs {
		once := service.FormatSQL(in)
		if twice := service.FormatSQL(once); twice != once {
			t.Errorf("not idempotent for %q:\n%q\n%q", in, once, twice)
		}
	}
}
