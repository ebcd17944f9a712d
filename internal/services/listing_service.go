package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/query"
)

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	SearchListings(ctx context.Context, filters query.SearchFilters) ([]models.Listing, error)
	FindListingByID(ctx context.Context, listingID int64) (*models.Listing, error)
	CreateListing(ctx context.Context, ownerID int64, in models.ListingInput) (*models.Listing, error)
	UpdateListing(ctx context.Context, listingID, userID int64, in models.ListingInput) (*models.Listing, error)
	DeleteListing(ctx context.Context, listingID, userID int64) error
	ListingsByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error)
}

// listingService implements IListingService.
type listingService struct {
	provider *db.Provider
	now      func() time.Time
}

// NewListingService creates a new ListingService.
func NewListingService(provider *db.Provider) IListingService {
	return &listingService{provider: provider, now: func() time.Time { return time.Now().UTC() }}
}

// SearchListings returns the listings matching filters, newest first.
func (s *listingService) SearchListings(ctx context.Context, filters query.SearchFilters) ([]models.Listing, error) {
	q, args, err := query.BuildSearch(s.provider.Dialect(), filters)
	if err != nil {
		return nil, err
	}
	var listings []models.Listing
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		listings, err = queryListings(ctx, conn, q, args)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to search listings")
	}
	return listings, nil
}

// FindListingByID finds a listing by its ID. It does NOT check ownership.
func (s *listingService) FindListingByID(ctx context.Context, listingID int64) (*models.Listing, error) {
	var listing *models.Listing
	err := withConn(ctx, s.provider, func(conn *db.Conn) error {
		var err error
		listing, err = getListing(ctx, conn, listingID)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to find listing %d", listingID)
	}
	return listing, nil
}

// CreateListing stores a new listing owned by ownerID. The rental price is derived from the
// sale price when the listing is rentable and none was given.
func (s *listingService) CreateListing(ctx context.Context, ownerID int64, in models.ListingInput) (*models.Listing, error) {
	d := s.provider.Dialect()
	q, args, err := query.BuildInsert(d, ownerID, in, s.now())
	if err != nil {
		return nil, err
	}

	var listing *models.Listing
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		if err := requireRow(ctx, conn, "SELECT COUNT(*) FROM users WHERE id = ?", ownerID, "owner %d not found"); err != nil {
			return err
		}
		id, err := conn.Insert(ctx, q, args...)
		if err != nil {
			return err
		}
		listing, err = getListing(ctx, conn, id)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to insert new listing for user %d", ownerID)
	}
	log.Printf("Listing %d created by user %d", listing.ID, ownerID)
	return listing, nil
}

// UpdateListing replaces the writable fields of a listing owned by userID.
func (s *listingService) UpdateListing(ctx context.Context, listingID, userID int64, in models.ListingInput) (*models.Listing, error) {
	d := s.provider.Dialect()
	q, args, err := query.BuildUpdate(d, listingID, in)
	if err != nil {
		return nil, err
	}

	var listing *models.Listing
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		if err := authorizeOwner(ctx, conn, listingID, userID); err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, q, args...); err != nil {
			return err
		}
		listing, err = getListing(ctx, conn, listingID)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to update listing %d", listingID)
	}
	return listing, nil
}

// DeleteListing removes a listing owned by userID together with its messages.
func (s *listingService) DeleteListing(ctx context.Context, listingID, userID int64) error {
	d := s.provider.Dialect()
	q, args, err := query.BuildDelete(d, listingID)
	if err != nil {
		return apperr.Backend(err, "failed to build delete for listing %d", listingID)
	}

	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		if err := authorizeOwner(ctx, conn, listingID, userID); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, q, args...)
		return err
	})
	if err != nil {
		return apperr.Backend(err, "failed to delete listing %d", listingID)
	}
	log.Printf("Listing %d deleted by user %d", listingID, userID)
	return nil
}

// ListingsByOwner returns the listings currently owned by ownerID, newest first.
func (s *listingService) ListingsByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error) {
	q, args, err := query.BuildByOwner(s.provider.Dialect(), ownerID)
	if err != nil {
		return nil, apperr.Backend(err, "failed to build owner listing query")
	}
	var listings []models.Listing
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		listings, err = queryListings(ctx, conn, q, args)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to find listings for user %d", ownerID)
	}
	return listings, nil
}

func queryListings(ctx context.Context, conn *db.Conn, q string, args []any) ([]models.Listing, error) {
	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		l, err := query.ScanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func getListing(ctx context.Context, conn *db.Conn, listingID int64) (*models.Listing, error) {
	q, args, err := query.BuildGet(conn.Dialect(), listingID)
	if err != nil {
		return nil, err
	}
	l, err := query.ScanListing(conn.QueryRow(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("listing %d not found", listingID)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// authorizeOwner fails unless listingID exists and is owned by userID. A listing whose
// owner was removed can no longer be changed by anyone.
func authorizeOwner(ctx context.Context, conn *db.Conn, listingID, userID int64) error {
	q, args, err := query.BuildOwnerOf(conn.Dialect(), listingID)
	if err != nil {
		return err
	}
	var owner sql.NullInt64
	err = conn.QueryRow(ctx, q, args...).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("listing %d not found", listingID)
	}
	if err != nil {
		return err
	}
	if !owner.Valid || owner.Int64 != userID {
		return apperr.Authorization("user %d does not own listing %d", userID, listingID)
	}
	return nil
}
