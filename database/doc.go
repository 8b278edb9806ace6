// Package database persists the bot's state with bun over SQLite or
// PostgreSQL: currency balances, custom commands and filtered words.
//
// The driver is chosen from the database_url:
//
//	database_url = "streambot.db"                       # SQLite file
//	database_url = "sqlite::memory:"                    # SQLite in memory
//	database_url = "postgres://bot@localhost/streambot" # PostgreSQL
//
// Component opens the connection with retry and creates missing tables on
// Start.
package database
