package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/party-rentals/api/internal/domain"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
)

type CouponRepository struct {
	provider *pfirestore.Provider
	coupons  *pfirestore.BaseRepository[couponDocument]
}

func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		provider: provider,
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

func (r *CouponRepository) Insert(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.coupons == nil {
		return errors.New("coupon repository not initialised")
	}
	if strings.TrimSpace(coupon.ID) == "" {
		return errors.New("coupon insert: id is required")
	}

	code := strings.ToUpper(strings.TrimSpace(coupon.Code))
	coupon.Code = code

	// Codes are unique; reject the insert when any document already carries it.
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		existing, err := tx.Documents(client.Collection(couponsCollection).Where("code", "==", code).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return status.Errorf(codes.AlreadyExists, "coupon code %s already exists", code)
		}
		ref, err := r.coupons.DocumentRef(ctx, coupon.ID)
		if err != nil {
			return err
		}
		return tx.Create(ref, newCouponDocument(coupon))
	})
	if err != nil {
		return pfirestore.WrapError("coupons.insert", err)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.coupons == nil {
		return errors.New("coupon repository not initialised")
	}
	if strings.TrimSpace(coupon.ID) == "" {
		return errors.New("coupon update: id is required")
	}
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	_, err := r.coupons.Set(ctx, coupon.ID, newCouponDocument(coupon))
	return err
}

func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	if r == nil || r.coupons == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return errors.New("coupon delete: id is required")
	}
	ref, err := r.coupons.DocumentRef(ctx, couponID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("coupons.delete", err)
	}
	return nil
}

func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if r == nil || r.coupons == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return domain.Coupon{}, errors.New("coupon find: id is required")
	}
	doc, err := r.coupons.Get(ctx, couponID)
	if err != nil {
		return domain.Coupon{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, errors.New("coupon find: code is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}

	iter := client.Collection(couponsCollection).
		Where("code", "==", code).
		Where("isActive", "==", true).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", status.Errorf(codes.NotFound, "coupon %s not found", code))
	}
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}
	var doc couponDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Coupon{}, fmt.Errorf("decode coupon %s: %w", code, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *CouponRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Coupon]{}, errors.New("coupon repository not initialised")
	}

	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
	}

	query := client.Collection(couponsCollection).Query.
		OrderBy("code", firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodeCouponPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		query = query.StartAfter(decoded.Code)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var coupons []domain.Coupon
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		var doc couponDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Coupon]{}, fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
		}
		coupons = append(coupons, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(coupons) > pageSize
	if hasMore {
		coupons = coupons[:pageSize]
	}
	var nextToken string
	if hasMore && len(coupons) > 0 {
		encoded, err := encodeCouponPageToken(couponPageToken{Code: coupons[len(coupons)-1].Code})
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Coupon]{Items: coupons, NextPageToken: nextToken}, nil
}

// incrementCouponUsageTx re-checks the usage limit against the coupon
// document as read inside the caller's transaction, then bumps usedCount.
// Order creation is the only writer of usedCount, so the check and the
// increment always commit together or not at all.
func incrementCouponUsageTx(tx *firestore.Transaction, snap *firestore.DocumentSnapshot, now time.Time) error {
	var doc couponDocument
	if err := snap.DataTo(&doc); err != nil {
		return fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
	}
	if doc.UsageLimit != nil && doc.UsedCount >= *doc.UsageLimit {
		return status.Errorf(codes.FailedPrecondition, "coupon %s usage limit reached", doc.Code)
	}
	return tx.Update(snap.Ref, []firestore.Update{
		{Path: "usedCount", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: now.UTC()},
	})
}

type couponDocument struct {
	Code              string     `firestore:"code"`
	DiscountType      string     `firestore:"discountType"`
	DiscountValue     float64    `firestore:"discountValue"`
	MaxDiscountAmount *float64   `firestore:"maxDiscountAmount,omitempty"`
	MinCartValue      float64    `firestore:"minCartValue"`
	ExpiryDate        *time.Time `firestore:"expiryDate,omitempty"`
	UsageLimit        *int       `firestore:"usageLimit,omitempty"`
	UsedCount         int        `firestore:"usedCount"`
	IsActive          bool       `firestore:"isActive"`
	CreatedAt         time.Time  `firestore:"createdAt"`
	UpdatedAt         time.Time  `firestore:"updatedAt"`
}

func newCouponDocument(coupon domain.Coupon) couponDocument {
	return couponDocument{
		Code:              coupon.Code,
		DiscountType:      string(coupon.DiscountType),
		DiscountValue:     coupon.DiscountValue,
		MaxDiscountAmount: coupon.MaxDiscountAmount,
		MinCartValue:      coupon.MinCartValue,
		ExpiryDate:        coupon.ExpiryDate,
		UsageLimit:        coupon.UsageLimit,
		UsedCount:         coupon.UsedCount,
		IsActive:          coupon.IsActive,
		CreatedAt:         coupon.CreatedAt.UTC(),
		UpdatedAt:         coupon.UpdatedAt.UTC(),
	}
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:                id,
		Code:              d.Code,
		DiscountType:      domain.DiscountType(d.DiscountType),
		DiscountValue:     d.DiscountValue,
		MaxDiscountAmount: d.MaxDiscountAmount,
		MinCartValue:      d.MinCartValue,
		ExpiryDate:        d.ExpiryDate,
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		IsActive:          d.IsActive,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type couponPageToken struct {
	Code string
}

func encodeCouponPageToken(token couponPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode coupon page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeCouponPageToken(encoded string) (*couponPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode coupon page token: %w", err)
	}
	var token couponPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode coupon page token json: %w", err)
	}
	return &token, nil
}
