package transition

// Schema history for the transition store. The unique constraints double as
// the concurrency mechanism: concurrent writers racing on the same edge,
// link or cause resolve through the ON CONFLICT paths in postgres.go.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS tilstandsendring (
				id BIGSERIAL PRIMARY KEY,
				fra_tilstand TEXT NOT NULL,
				til_tilstand TEXT NOT NULL,
				fordi TEXT NOT NULL,
				forste_gang TIMESTAMPTZ NOT NULL,
				siste_gang TIMESTAMPTZ NOT NULL,
				CONSTRAINT transisjon UNIQUE (fra_tilstand, til_tilstand, fordi)
			);

			CREATE TABLE IF NOT EXISTS vedtaksperiode_tilstandsendring (
				id BIGSERIAL PRIMARY KEY,
				melding_id UUID NOT NULL UNIQUE,
				vedtaksperiode_id UUID NOT NULL,
				tilstandsendring_id BIGINT NOT NULL REFERENCES tilstandsendring (id),
				naar TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_vedtaksperiode_id
				ON vedtaksperiode_tilstandsendring (vedtaksperiode_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS arsak (
				id BIGSERIAL PRIMARY KEY,
				melding_id UUID NOT NULL UNIQUE,
				navn TEXT NOT NULL,
				opprettet TIMESTAMPTZ NOT NULL
			);

			ALTER TABLE vedtaksperiode_tilstandsendring
				ADD COLUMN IF NOT EXISTS arsak_id BIGINT REFERENCES arsak (id);
		`,
	}
}
