package moex

import (
	"fmt"
	"net/url"
)

// CatalogRow is one instrument from the full exchange listing.
type CatalogRow struct {
	Ticker        string
	Name          string
	Price         float64 // previous close, 0 when the exchange reports none
	LotSize       int
	FaceValue     float64 // bonds only
	CouponPercent float64 // bonds only
	MaturityDate  string  // bonds only, YYYY-MM-DD
}

// ListShares fetches the full share listing. Rows are filtered to ordinary
// and preferred shares by the SECTYPE marker plus the identifier-length
// heuristic (domestic equity tickers are at most six characters); rows
// missing an identifier or name are skipped.
func (c *Client) ListShares() ([]CatalogRow, error) {
	query := url.Values{}
	query.Set("iss.only", "securities")
	query.Set("securities.columns", "SECID,SHORTNAME,PREVPRICE,SECTYPE,LOTSIZE")

	tables, err := c.get("/engines/stock/markets/shares/securities.json", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch share listing: %w", err)
	}

	securities, ok := tables["securities"]
	if !ok {
		return nil, fmt.Errorf("share listing response has no securities block")
	}

	var rows []CatalogRow
	for i := 0; i < securities.Len(); i++ {
		row := securities.Row(i)

		secid, _ := row.String("SECID")
		name, _ := row.String("SHORTNAME")
		sectype, _ := row.String("SECTYPE")
		if secid == "" || name == "" {
			continue
		}
		if !isShareType(sectype) || len(secid) > 6 {
			continue
		}

		price, _ := row.PositiveFloat("PREVPRICE")
		rows = append(rows, CatalogRow{
			Ticker:  secid,
			Name:    name,
			Price:   price,
			LotSize: lotSize(row),
		})
	}

	c.log.Info().Int("count", len(rows)).Msg("Fetched share listing")
	return rows, nil
}

// ListBonds fetches the full bond listing. Rows without an identifier, name
// or face value are skipped; bond quotes are unusable without a face value.
func (c *Client) ListBonds() ([]CatalogRow, error) {
	query := url.Values{}
	query.Set("iss.only", "securities")
	query.Set("securities.columns", "SECID,SHORTNAME,PREVPRICE,FACEVALUE,COUPONPERCENT,MATDATE,LOTSIZE")

	tables, err := c.get("/engines/stock/markets/bonds/securities.json", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bond listing: %w", err)
	}

	securities, ok := tables["securities"]
	if !ok {
		return nil, fmt.Errorf("bond listing response has no securities block")
	}

	var rows []CatalogRow
	for i := 0; i < securities.Len(); i++ {
		row := securities.Row(i)

		secid, _ := row.String("SECID")
		name, _ := row.String("SHORTNAME")
		if secid == "" || name == "" {
			continue
		}

		face, ok := row.PositiveFloat("FACEVALUE")
		if !ok {
			continue
		}

		// Bond previous prices are percent of face.
		price := 0.0
		if quote, ok := row.PositiveFloat("PREVPRICE"); ok {
			price = quote / 100 * face
		}

		coupon, _ := row.Float("COUPONPERCENT")
		maturity, _ := row.String("MATDATE")

		rows = append(rows, CatalogRow{
			Ticker:        secid,
			Name:          name,
			Price:         price,
			LotSize:       lotSize(row),
			FaceValue:     face,
			CouponPercent: coupon,
			MaturityDate:  maturity,
		})
	}

	c.log.Info().Int("count", len(rows)).Msg("Fetched bond listing")
	return rows, nil
}

// isShareType reports whether a SECTYPE marker denotes an equity. ISS uses
// "1" for ordinary and "2" for preferred shares on the stock market.
func isShareType(sectype string) bool {
	return sectype == "1" || sectype == "2"
}

// lotSize reads the LOTSIZE column, defaulting to 1.
func lotSize(row Row) int {
	if v, ok := row.PositiveFloat("LOTSIZE"); ok {
		return int(v)
	}
	return 1
}
