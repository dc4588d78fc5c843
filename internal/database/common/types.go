package common

// IndexInfo describes one index of a table, columns in key order.
type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns,omitempty"`
	IsUnique bool     `json:"isUnique,omitempty"`
	Type     string   `json:"type,omitempty"`   // BTREE, FULLTEXT, SPATIAL, HASH
	Parser   string   `json:"parser,omitempty"` // full-text parser plugin, e.g. ngram
}

// ForeignKeyInfo describes one foreign key constraint of a table.
type ForeignKeyInfo struct {
	Name              string   `json:"name"`
	LocalColumns      []string `json:"localColumns"`
	ReferencedTable   string   `json:"referencedTable"`
	ReferencedColumns []string `json:"referencedColumns"`
	OnUpdate          string   `json:"onUpdate,omitempty"`
	OnDelete          string   `json:"onDelete,omitempty"`
}

// TableSchema is a read-only snapshot of the indexes and foreign keys of one
// table. It is fetched per operation and never cached.
type TableSchema struct {
	Table       string           `json:"table"`
	Indexes     []IndexInfo      `json:"indexes"`
	ForeignKeys []ForeignKeyInfo `json:"foreignKeys"`
}

// FindIndex returns the index with the given name.
func (s *TableSchema) FindIndex(name string) (IndexInfo, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexInfo{}, false
}

// FindForeignKey returns the foreign key with the given name.
func (s *TableSchema) FindForeignKey(name string) (ForeignKeyInfo, bool) {
	for _, fk := range s.ForeignKeys {
		if fk.Name == name {
			return fk, true
		}
	}
	return ForeignKeyInfo{}, false
}
