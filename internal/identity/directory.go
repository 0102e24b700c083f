package identity

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"SafeTrail/internal/models"
	"SafeTrail/pkg/cache"
	"SafeTrail/pkg/errors"
)

// Directory resolves tourist identities. Identity verification (OTP,
// document checks) happens elsewhere; the registry only needs to know
// whether an id exists and which profile it maps to.
type Directory struct {
	db    *gorm.DB
	cache cache.Cache
	ttl   time.Duration
}

func NewDirectory(db *gorm.DB, c cache.Cache) (*Directory, error) {
	if err := db.AutoMigrate(&models.TouristIdentity{}); err != nil {
		return nil, errors.Wrap(err, "migrate identity directory")
	}
	return &Directory{db: db, cache: c, ttl: 5 * time.Minute}, nil
}

// Lookup resolves one identity, serving repeat hits from cache.
func (d *Directory) Lookup(ctx context.Context, id string) (*models.TouristIdentity, error) {
	if d.cache != nil {
		if v, ok := d.cache.Get(ctx, cacheKey(id)); ok {
			switch t := v.(type) {
			case *models.TouristIdentity:
				return t, nil
			case string:
				// distributed backends hand back JSON
				var ident models.TouristIdentity
				if err := json.Unmarshal([]byte(t), &ident); err == nil {
					return &ident, nil
				}
			}
		}
	}

	var ident models.TouristIdentity
	if err := d.db.First(&ident, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.WithCodef(errors.CodeIdentityUnknown, "identity %s unknown", id)
		}
		return nil, errors.Wrap(err, "identity lookup")
	}

	if d.cache != nil {
		_ = d.cache.Set(ctx, cacheKey(id), &ident, d.ttl)
	}
	return &ident, nil
}

func cacheKey(id string) string { return "identity:" + id }

// Seed inserts the demo tourist directory when the table is empty.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.TouristIdentity{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []models.TouristIdentity{
		{ID: "123456789012", Name: "John Doe", HomeLocation: "Mumbai, India", Phone: "+91-9876543210", Language: "en"},
		{ID: "987654321098", Name: "Jane Smith", HomeLocation: "Delhi, India", Phone: "+91-9876543211", Language: "en"},
		{ID: "456789012345", Name: "Bob Wilson", HomeLocation: "Bangalore, India", Phone: "+91-9876543212", Language: "en"},
	}
	return db.Create(&seed).Error
}

// EmergencyServices is the dialable national directory included in every
// connect acknowledgement.
func EmergencyServices() map[string]models.EmergencyService {
	return map[string]models.EmergencyService{
		"police":           {Name: "Police", Phone: "100", Priority: 1},
		"ambulance":        {Name: "Ambulance", Phone: "108", Priority: 1},
		"fire":             {Name: "Fire Brigade", Phone: "101", Priority: 1},
		"women_helpline":   {Name: "Women Helpline", Phone: "1091", Priority: 2},
		"child_helpline":   {Name: "Child Helpline", Phone: "1098", Priority: 2},
		"tourist_helpline": {Name: "Tourist Helpline", Phone: "1363", Priority: 2},
	}
}
