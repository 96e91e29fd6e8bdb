package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scheduled_payments (
	id              UUID PRIMARY KEY,
	user_id         UUID NOT NULL REFERENCES users(id),
	payee           TEXT NOT NULL,
	amount          NUMERIC(12,2) NOT NULL,
	due_date        DATE NOT NULL,
	status          TEXT NOT NULL DEFAULT 'PENDING',
	paid_at         TIMESTAMPTZ,
	notes           TEXT NOT NULL DEFAULT '',
	expected_method TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS transactions (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL REFERENCES users(id),
	type           TEXT NOT NULL,
	amount         NUMERIC(12,2) NOT NULL,
	date           DATE NOT NULL,
	counterparty   TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	method         TEXT NOT NULL,
	linked_payment UUID UNIQUE REFERENCES scheduled_payments(id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS weekly_periods (
	id              UUID PRIMARY KEY,
	user_id         UUID NOT NULL REFERENCES users(id),
	week_start_date DATE NOT NULL,
	opening_balance NUMERIC(12,2) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at      TIMESTAMPTZ,
	UNIQUE (user_id, week_start_date)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date
	ON transactions (user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_payments_user_due
	ON scheduled_payments (user_id, due_date);
`
