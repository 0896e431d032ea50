package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/sofia-padel/api/internal/domain"
	pfirestore "github.com/sofia-padel/api/internal/platform/firestore"
)

const usersCollection = "users"

type userDocument struct {
	Email            string    `firestore:"email"`
	FirstName        string    `firestore:"first_name"`
	LastName         string    `firestore:"last_name"`
	Phone            string    `firestore:"phone"`
	Address          string    `firestore:"address"`
	City             string    `firestore:"city"`
	PostalCode       string    `firestore:"postal_code"`
	PreferredPayment string    `firestore:"preferred_payment,omitempty"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

// UserRepository keeps customer profiles in Firestore, refreshed on checkout.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, usersCollection, nil, nil)
	return &UserRepository{base: base}, nil
}

// FindByID loads the customer profile.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	profile := toDomainUserProfile(doc.Data)
	profile.ID = doc.ID
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = doc.UpdateTime
	}
	return profile, nil
}

// Upsert writes the profile under its ID, overwriting stale contact fields.
func (r *UserRepository) Upsert(ctx context.Context, profile domain.UserProfile) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(profile.ID) == "" {
		return errors.New("profile id is required")
	}

	_, err := r.base.Set(ctx, profile.ID, fromDomainUserProfile(profile))
	return err
}

func toDomainUserProfile(doc userDocument) domain.UserProfile {
	return domain.UserProfile{
		Email:            doc.Email,
		FirstName:        doc.FirstName,
		LastName:         doc.LastName,
		Phone:            doc.Phone,
		Address:          doc.Address,
		City:             doc.City,
		PostalCode:       doc.PostalCode,
		PreferredPayment: doc.PreferredPayment,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func fromDomainUserProfile(profile domain.UserProfile) userDocument {
	doc := userDocument{
		Email:            strings.ToLower(strings.TrimSpace(profile.Email)),
		FirstName:        strings.TrimSpace(profile.FirstName),
		LastName:         strings.TrimSpace(profile.LastName),
		Phone:            strings.TrimSpace(profile.Phone),
		Address:          strings.TrimSpace(profile.Address),
		City:             strings.TrimSpace(profile.City),
		PostalCode:       strings.TrimSpace(profile.PostalCode),
		PreferredPayment: strings.TrimSpace(profile.PreferredPayment),
		UpdatedAt:        profile.UpdatedAt,
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	return doc
}
