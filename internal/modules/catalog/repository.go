package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/clients/moex"
)

// instrumentColumns avoids SELECT *; order must match scanInstrument.
const instrumentColumns = `ticker, name, kind, price, currency, lot_size,
sector, description, logo_url, face_value, coupon_percent, maturity_date,
created_at, updated_at`

// Repository handles instrument persistence in catalog.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new instrument repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "catalog").Logger(),
	}
}

// GetByTicker returns one instrument, or nil when unknown. The identifier is
// normalized first so retired spellings resolve to the current row.
func (r *Repository) GetByTicker(ticker string) (*Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments WHERE ticker = ?"

	rows, err := r.db.Query(query, moex.Normalize(ticker))
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	inst, err := scanInstrument(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan instrument: %w", err)
	}
	return &inst, nil
}

// List returns all instruments of one kind ordered by ticker.
func (r *Repository) List(kind Kind) ([]Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments WHERE kind = ? ORDER BY ticker"

	rows, err := r.db.Query(query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	return collectInstruments(rows)
}

// Search returns instruments whose ticker or name contains the query,
// case-insensitively, capped at limit rows.
func (r *Repository) Search(q string, limit int) ([]Instrument, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(q) + "%"

	query := "SELECT " + instrumentColumns + ` FROM instruments
WHERE ticker LIKE ? OR name LIKE ?
ORDER BY ticker LIMIT ?`

	rows, err := r.db.Query(query, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search instruments: %w", err)
	}
	defer rows.Close()

	return collectInstruments(rows)
}

// Count returns the number of instruments of one kind.
func (r *Repository) Count(kind Kind) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM instruments WHERE kind = ?", string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count instruments: %w", err)
	}
	return n, nil
}

// ExistsTx reports whether a ticker is already cataloged.
func (r *Repository) ExistsTx(tx *sql.Tx, ticker string) (bool, error) {
	var n int
	err := tx.QueryRow("SELECT COUNT(*) FROM instruments WHERE ticker = ?", ticker).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check instrument existence: %w", err)
	}
	return n > 0, nil
}

// InsertTx adds a new instrument within a sync transaction.
func (r *Repository) InsertTx(tx *sql.Tx, inst Instrument) error {
	now := time.Now().Unix()

	_, err := tx.Exec(`INSERT INTO instruments
(ticker, name, kind, price, currency, lot_size, sector, description, logo_url,
 face_value, coupon_percent, maturity_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.Ticker, inst.Name, string(inst.Kind), inst.Price, currencyOrDefault(inst.Currency),
		inst.LotSize, nullString(inst.Sector), nullString(inst.Description), nullString(inst.LogoURL),
		nullFloat(inst.FaceValue), nullFloat(inst.CouponPercent), nullString(inst.MaturityDate),
		now, now)
	if err != nil {
		return fmt.Errorf("failed to insert instrument %s: %w", inst.Ticker, err)
	}
	return nil
}

// UpdateListingTx refreshes listing-derived fields of an existing row within
// a sync transaction. Curated fields are never overwritten with empty remote
// values: description and logo are left alone entirely, the sector is only
// filled when the row has none, and a zero price keeps the stored one.
func (r *Repository) UpdateListingTx(tx *sql.Tx, inst Instrument) error {
	_, err := tx.Exec(`UPDATE instruments SET
name = ?,
price = CASE WHEN ? > 0 THEN ? ELSE price END,
lot_size = ?,
sector = COALESCE(sector, ?),
face_value = COALESCE(NULLIF(?, 0), face_value),
coupon_percent = COALESCE(NULLIF(?, 0), coupon_percent),
maturity_date = COALESCE(NULLIF(?, ''), maturity_date),
updated_at = ?
WHERE ticker = ?`,
		inst.Name, inst.Price, inst.Price, inst.LotSize, nullString(inst.Sector),
		inst.FaceValue, inst.CouponPercent, inst.MaturityDate,
		time.Now().Unix(), inst.Ticker)
	if err != nil {
		return fmt.Errorf("failed to update instrument %s: %w", inst.Ticker, err)
	}
	return nil
}

// UpdatePrice stores a freshly resolved price.
func (r *Repository) UpdatePrice(ticker string, price float64) error {
	_, err := r.db.Exec("UPDATE instruments SET price = ?, updated_at = ? WHERE ticker = ?",
		price, time.Now().Unix(), ticker)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", ticker, err)
	}
	return nil
}

func collectInstruments(rows *sql.Rows) ([]Instrument, error) {
	var out []Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instruments: %w", err)
	}
	return out, nil
}

func scanInstrument(rows *sql.Rows) (Instrument, error) {
	var (
		inst                          Instrument
		kind                          string
		sector, description, logoURL  sql.NullString
		faceValue, couponPercent      sql.NullFloat64
		maturityDate                  sql.NullString
		createdAt, updatedAt          int64
	)

	err := rows.Scan(&inst.Ticker, &inst.Name, &kind, &inst.Price, &inst.Currency,
		&inst.LotSize, &sector, &description, &logoURL,
		&faceValue, &couponPercent, &maturityDate, &createdAt, &updatedAt)
	if err != nil {
		return Instrument{}, err
	}

	inst.Kind = Kind(kind)
	inst.Sector = sector.String
	inst.Description = description.String
	inst.LogoURL = logoURL.String
	inst.FaceValue = faceValue.Float64
	inst.CouponPercent = couponPercent.Float64
	inst.MaturityDate = maturityDate.String
	inst.CreatedAt = time.Unix(createdAt, 0)
	inst.UpdatedAt = time.Unix(updatedAt, 0)
	return inst, nil
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "RUB"
	}
	return currency
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
