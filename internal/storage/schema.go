package storage

// Tables in creation order. Every statement is idempotent.
var tableStatements = []string{
	`CREATE TABLE IF NOT EXISTS currencies (
		code TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		parent_id TEXT REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('cash', 'credit_card', 'debit_card', 'bank_transfer', 'digital_wallet', 'other')),
		name TEXT NOT NULL,
		alias TEXT,
		last_four_digits TEXT,
		card_network TEXT,
		bank_name TEXT,
		provider TEXT,
		is_default INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		color TEXT,
		icon TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		amount REAL NOT NULL CHECK (amount > 0),
		description TEXT,
		vendor TEXT NOT NULL,
		date TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES categories(id),
		currency_code TEXT NOT NULL REFERENCES currencies(code),
		payment_method_id TEXT REFERENCES payment_methods(id),
		location TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expense_tags (
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (expense_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		name TEXT PRIMARY KEY,
		usage_count INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		default_currency_code TEXT NOT NULL REFERENCES currencies(code),
		theme TEXT NOT NULL DEFAULT 'system' CHECK (theme IN ('light', 'dark', 'system')),
		language TEXT NOT NULL DEFAULT 'en',
		date_format TEXT NOT NULL,
		first_day_of_week INTEGER NOT NULL DEFAULT 0
	)`,
}

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_payment_method ON expenses(payment_method_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_vendor ON expenses(vendor)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expense_tags_tag ON expense_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_vendors_usage ON vendors(usage_count DESC)`,
}

// essentialTables must exist and be readable for the store to be healthy.
var essentialTables = []string{
	"expenses",
	"categories",
	"currencies",
	"payment_methods",
	"user_preferences",
}
