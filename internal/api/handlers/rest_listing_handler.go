package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/middleware"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/query"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/services"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

// priceParams maps query parameters to the filter field they set.
var priceParams = []struct {
	name string
	dst  func(*query.SearchFilters) **float64
}{
	{"minSalePrice", func(f *query.SearchFilters) **float64 { return &f.MinSalePrice }},
	{"maxSalePrice", func(f *query.SearchFilters) **float64 { return &f.MaxSalePrice }},
	{"minRentalPrice", func(f *query.SearchFilters) **float64 { return &f.MinRentalPrice }},
	{"maxRentalPrice", func(f *query.SearchFilters) **float64 { return &f.MaxRentalPrice }},
}

// parseSearchFilters reads the search query parameters. Empty parameters are absent.
func parseSearchFilters(c *gin.Context) (query.SearchFilters, bool) {
	filters := query.SearchFilters{
		Type:       strings.TrimSpace(c.Query("type")),
		SearchText: c.Query("search"),
	}

	for _, p := range priceParams {
		raw := strings.TrimSpace(c.Query(p.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			respondValidation(c, "Invalid %s", p.name)
			return filters, false
		}
		*p.dst(&filters) = &v
	}

	// excludeMine only applies when there is a session to exclude.
	if exclude, _ := strconv.ParseBool(c.Query("excludeMine")); exclude {
		if userID, ok := middleware.UserIDFrom(c); ok {
			filters.ExcludeOwnerID = &userID
		}
	}
	return filters, true
}

// SearchListings handles GET /api/bikes
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	filters, ok := parseSearchFilters(c)
	if !ok {
		return
	}

	listings, err := h.listingService.SearchListings(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	c.JSON(http.StatusOK, gin.H{
		"bikes": listings,
		"count": len(listings),
	})
}

// GetListingByID handles GET /api/bikes/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /api/bikes
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var in models.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "bike": listing})
}

// UpdateListing handles PUT /api/bikes/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bike": listing})
}

// DeleteListing handles DELETE /api/bikes/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SearchUserListings handles GET /api/users/:id/bikes
func (h *RestListingHandler) SearchUserListings(c *gin.Context) {
	ownerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	listings, err := h.listingService.ListingsByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{
		"bikes": listings,
		"count": len(listings),
	})
}
