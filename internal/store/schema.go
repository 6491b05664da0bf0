package store

import (
	"github.com/saldo-app/saldo/internal/dataservice"
)

// Column describes one column of a data-service table.
type Column struct {
	Name string
	Type string
}

// Table lists the columns a table accepts. The first column is the key.
type Table struct {
	Name    string
	Columns []Column
}

func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) key() string {
	return t.Columns[0].Name
}

var transactionColumns = []Column{
	{Name: "id", Type: "uuid"},
	{Name: "user_id", Type: "uuid"},
	{Name: "amount", Type: "numeric"},
	{Name: "description", Type: "text"},
	{Name: "date", Type: "date"},
}

// Tables is the whitelist of tables and columns served by the store.
var Tables = map[string]Table{
	dataservice.TableUsers: {
		Name: dataservice.TableUsers,
		Columns: []Column{
			{Name: "id", Type: "uuid"},
			{Name: "email", Type: "text"},
			{Name: "name", Type: "text"},
			{Name: "national_id", Type: "text"},
		},
	},
	dataservice.TableIncome:  {Name: dataservice.TableIncome, Columns: transactionColumns},
	dataservice.TableExpense: {Name: dataservice.TableExpense, Columns: transactionColumns},
}

// Schema creates the tables backing the Postgres store.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id          uuid PRIMARY KEY,
    email       text NOT NULL,
    name        text NOT NULL,
    national_id text NOT NULL
);

CREATE TABLE IF NOT EXISTS income (
    id          uuid PRIMARY KEY,
    user_id     uuid NOT NULL,
    amount      numeric(14,2) NOT NULL CHECK (amount >= 0),
    description text NOT NULL,
    date        date NOT NULL DEFAULT current_date
);
CREATE INDEX IF NOT EXISTS income_user_date_idx ON income (user_id, date);

CREATE TABLE IF NOT EXISTS expense (
    id          uuid PRIMARY KEY,
    user_id     uuid NOT NULL,
    amount      numeric(14,2) NOT NULL CHECK (amount >= 0),
    description text NOT NULL,
    date        date NOT NULL DEFAULT current_date
);
CREATE INDEX IF NOT EXISTS expense_user_date_idx ON expense (user_id, date);
`

func lookup(op, name string) (Table, error) {
	t, ok := Tables[name]
	if !ok {
		return Table{}, dataservice.Errorf(op, "unknown table %q", name)
	}
	return t, nil
}

func checkColumns(op string, t Table, row dataservice.Row) error {
	for name := range row {
		if _, ok := t.column(name); !ok {
			return dataservice.Errorf(op, "unknown column %q in table %s", name, t.Name)
		}
	}
	return nil
}

func checkFilter(op string, t Table, f dataservice.Filter) error {
	if err := f.Validate(); err != nil {
		return dataservice.Wrap(op, err)
	}
	for _, c := range f {
		if _, ok := t.column(c.Column); !ok {
			return dataservice.Errorf(op, "unknown column %q in table %s", c.Column, t.Name)
		}
	}
	return nil
}

func sortedColumns(t Table, row dataservice.Row) []Column {
	cols := make([]Column, 0, len(row))
	for _, c := range t.Columns {
		if _, ok := row[c.Name]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}
