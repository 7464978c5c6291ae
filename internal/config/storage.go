package config

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type Storage struct {
	Type   string          `mapstructure:"type"`
	SQLite *SQLLiteStorage `mapstructure:"local,omitempty"`
}

type SQLLiteStorage struct {
	Path string `mapstructure:"path,omitempty"`
}

// Shared reports whether the storage outlives the process, so that separate
// processes such as the server and the CLI see the same state.
func (s Storage) Shared() bool {
	return s.Type == StorageSQLite && s.SQLite != nil && s.SQLite.Path != "" && s.SQLite.Path != ":memory:"
}
