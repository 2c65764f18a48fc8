package sqlite

func (s Storage) RunMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR NOT NULL PRIMARY KEY,
		auth TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calendars (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		platform VARCHAR NOT NULL,
		account_name VARCHAR NOT NULL,
		provider_id VARCHAR NOT NULL DEFAULT '',
		display_name VARCHAR NOT NULL DEFAULT '',
		owner_name VARCHAR NOT NULL DEFAULT '',
		access_role VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS calendars_provider
		ON calendars (platform, account_name, provider_id)
		WHERE provider_id != ''`,
}
