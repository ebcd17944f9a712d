package query

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
)

// SearchFilters are the optional listing search criteria. Nil and empty fields do not filter.
type SearchFilters struct {
	Type           string // sale, rental, or empty for both categories
	MinSalePrice   *float64
	MaxSalePrice   *float64
	MinRentalPrice *float64
	MaxRentalPrice *float64
	ExcludeOwnerID *int64
	SearchText     string
}

// likeEscape is the LIKE escape character. It is not special in any dialect's string
// literals, unlike backslash in MySQL.
const likeEscape = "!"

var listingColumns = []string{
	"b.id",
	"b.title",
	"b.sale_price",
	"b.rental_price",
	"b.sale_type",
	"b.model",
	"b.description",
	"b.bike_condition",
	"b.created_at",
	"b.owner_id",
	"u.name AS owner_name",
	"b.image_url",
	"b.location_name",
	"b.latitude",
	"b.longitude",
}

func selectListings(d db.Dialect) sq.SelectBuilder {
	return d.Builder().
		Select(listingColumns...).
		From("bikes b").
		LeftJoin("users u ON b.owner_id = u.id")
}

// searchType maps the requested type to a sale type, or "" for both categories.
func searchType(raw string) (models.SaleType, error) {
	switch t := strings.ToLower(strings.TrimSpace(raw)); t {
	case "", "all", string(models.SaleTypeBoth):
		return "", nil
	case string(models.SaleTypeSale), string(models.SaleTypeRental):
		return models.SaleType(t), nil
	default:
		return "", apperr.Validation("invalid type %q: must be sale or rental", raw)
	}
}

// priceBounds returns the bound predicates for one price column, each guarded so a null
// price never satisfies a bound. It returns nil when neither bound is set.
func priceBounds(column string, min, max *float64) sq.Sqlizer {
	if min == nil && max == nil {
		return nil
	}
	preds := sq.And{sq.NotEq{column: nil}}
	if min != nil {
		preds = append(preds, sq.GtOrEq{column: *min})
	}
	if max != nil {
		preds = append(preds, sq.LtOrEq{column: *max})
	}
	return preds
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// BuildSearch renders the listing search for d. Every filter value is a bound argument.
//
// With a type, only that type's price bounds apply. Without one, a listing matches when it
// satisfies the sale bounds or the rental bounds, so a listing missing one price can still
// match on the other.
func BuildSearch(d db.Dialect, f SearchFilters) (string, []any, error) {
	saleType, err := searchType(f.Type)
	if err != nil {
		return "", nil, err
	}
	for name, v := range map[string]*float64{
		"minSalePrice": f.MinSalePrice, "maxSalePrice": f.MaxSalePrice,
		"minRentalPrice": f.MinRentalPrice, "maxRentalPrice": f.MaxRentalPrice,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return "", nil, apperr.Validation("%s must be a finite number", name)
		}
	}

	b := selectListings(d)

	saleBounds := priceBounds("b.sale_price", f.MinSalePrice, f.MaxSalePrice)
	rentalBounds := priceBounds("b.rental_price", f.MinRentalPrice, f.MaxRentalPrice)

	switch saleType {
	case models.SaleTypeSale:
		b = b.Where(sq.Or{sq.Eq{"b.sale_type": string(saleType)}, sq.Eq{"b.sale_type": string(models.SaleTypeBoth)}})
		if saleBounds != nil {
			b = b.Where(saleBounds)
		}
	case models.SaleTypeRental:
		b = b.Where(sq.Or{sq.Eq{"b.sale_type": string(saleType)}, sq.Eq{"b.sale_type": string(models.SaleTypeBoth)}})
		if rentalBounds != nil {
			b = b.Where(rentalBounds)
		}
	default:
		var either sq.Or
		if saleBounds != nil {
			either = append(either, saleBounds)
		}
		if rentalBounds != nil {
			either = append(either, rentalBounds)
		}
		if len(either) > 0 {
			b = b.Where(either)
		}
	}

	if f.ExcludeOwnerID != nil {
		b = b.Where(sq.Or{sq.Eq{"b.owner_id": nil}, sq.NotEq{"b.owner_id": *f.ExcludeOwnerID}})
	}

	if text := strings.TrimSpace(f.SearchText); text != "" {
		// Both sides are folded by the database's LOWER so the pattern and the columns
		// agree on every dialect, including for non-ASCII text.
		pattern := "%" + EscapeLike(text) + "%"
		b = b.Where(sq.Expr(
			"(LOWER(b.title) LIKE LOWER(?) ESCAPE '"+likeEscape+"'"+
				" OR LOWER(b.description) LIKE LOWER(?) ESCAPE '"+likeEscape+"'"+
				" OR LOWER(u.name) LIKE LOWER(?) ESCAPE '"+likeEscape+"')",
			pattern, pattern, pattern,
		))
	}

	query, args, err := b.OrderBy("b.created_at DESC", "b.id DESC").ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build listing search: %w", err)
	}
	return query, args, nil
}

// BuildGet selects one listing by id.
func BuildGet(d db.Dialect, id int64) (string, []any, error) {
	return selectListings(d).Where(sq.Eq{"b.id": id}).ToSql()
}

// BuildByOwner selects the listings owned by ownerID, newest first.
func BuildByOwner(d db.Dialect, ownerID int64) (string, []any, error) {
	return selectListings(d).
		Where(sq.Eq{"b.owner_id": ownerID}).
		OrderBy("b.created_at DESC", "b.id DESC").
		ToSql()
}

// validateInput normalizes in and checks the write preconditions.
func validateInput(in models.ListingInput) (models.ListingInput, error) {
	in = in.Normalized()
	if in.Title == "" {
		return in, apperr.Validation("title is required")
	}
	if !in.SaleType.Valid() {
		return in, apperr.Validation("invalid sale_type %q: must be sale, rental or both", in.SaleType)
	}
	if in.SalePrice != nil && *in.SalePrice < 0 {
		return in, apperr.Validation("sale_price must not be negative")
	}
	if in.RentalPrice != nil && *in.RentalPrice < 0 {
		return in, apperr.Validation("rental_price must not be negative")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		return in, apperr.Validation("latitude must be between -90 and 90")
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		return in, apperr.Validation("longitude must be between -180 and 180")
	}
	return in, nil
}

// BuildInsert renders the INSERT for a new listing owned by ownerID. On Postgres the
// statement returns the new id.
func BuildInsert(d db.Dialect, ownerID int64, in models.ListingInput, now time.Time) (string, []any, error) {
	in, err := validateInput(in)
	if err != nil {
		return "", nil, err
	}
	b := d.Builder().
		Insert("bikes").
		Columns("title", "model", "description", "bike_condition", "image_url", "sale_type",
			"sale_price", "rental_price", "location_name", "latitude", "longitude", "owner_id", "created_at").
		Values(in.Title, nullable(in.Model), nullable(in.Description), nullable(in.Condition),
			nullable(in.ImageURL), string(in.SaleType), nullable(in.SalePrice), nullable(in.RentalPrice),
			nullable(in.LocationName), nullable(in.Latitude), nullable(in.Longitude), ownerID, now)
	if d.SupportsReturning() {
		b = b.Suffix("RETURNING id")
	}
	return b.ToSql()
}

// BuildUpdate renders the UPDATE replacing every writable column of listing id.
// Owner and creation time never change.
func BuildUpdate(d db.Dialect, id int64, in models.ListingInput) (string, []any, error) {
	in, err := validateInput(in)
	if err != nil {
		return "", nil, err
	}
	return d.Builder().
		Update("bikes").
		Set("title", in.Title).
		Set("model", nullable(in.Model)).
		Set("description", nullable(in.Description)).
		Set("bike_condition", nullable(in.Condition)).
		Set("image_url", nullable(in.ImageURL)).
		Set("sale_type", string(in.SaleType)).
		Set("sale_price", nullable(in.SalePrice)).
		Set("rental_price", nullable(in.RentalPrice)).
		Set("location_name", nullable(in.LocationName)).
		Set("latitude", nullable(in.Latitude)).
		Set("longitude", nullable(in.Longitude)).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// BuildOwnerOf selects the owner of listing id.
func BuildOwnerOf(d db.Dialect, id int64) (string, []any, error) {
	return d.Builder().Select("owner_id").From("bikes").Where(sq.Eq{"id": id}).ToSql()
}

// BuildDelete deletes listing id. Its messages go with it through the foreign key.
func BuildDelete(d db.Dialect, id int64) (string, []any, error) {
	return d.Builder().Delete("bikes").Where(sq.Eq{"id": id}).ToSql()
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanListing reads one row produced by the listing projection.
func ScanListing(row RowScanner) (models.Listing, error) {
	var l models.Listing
	var saleType string
	var salePrice, rentalPrice, latitude, longitude sql.NullFloat64
	var model, description, condition, ownerName, imageURL, locationName sql.NullString
	var ownerID sql.NullInt64
	err := row.Scan(&l.ID, &l.Title, &salePrice, &rentalPrice, &saleType, &model, &description,
		&condition, &l.CreatedAt, &ownerID, &ownerName, &imageURL, &locationName, &latitude, &longitude)
	if err != nil {
		return l, err
	}
	l.SaleType = models.SaleType(saleType)
	l.SalePrice = floatPtr(salePrice)
	l.RentalPrice = floatPtr(rentalPrice)
	l.Model = stringPtr(model)
	l.Description = stringPtr(description)
	l.Condition = stringPtr(condition)
	l.OwnerID = int64Ptr(ownerID)
	l.OwnerName = stringPtr(ownerName)
	l.ImageURL = stringPtr(imageURL)
	l.LocationName = stringPtr(locationName)
	l.Latitude = floatPtr(latitude)
	l.Longitude = floatPtr(longitude)
	return l, nil
}

// nullable turns an optional value into a bind argument: nil becomes SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
