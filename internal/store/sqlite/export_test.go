package sqlite

import "database/sql"

const SchemaVersion = schemaVersion

func DB(s *Store) *sql.DB { return s.db }
