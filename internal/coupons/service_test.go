package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
)

type stubCouponRepo struct {
	coupons  map[string]*models.Coupon
	issued   []*models.IssuedCoupon
	issueErr error
}

func newStubCouponRepo() *stubCouponRepo {
	return &stubCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (r *stubCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	return r.coupons[code], nil
}

func (r *stubCouponRepo) FindIssued(_ context.Context, customerID, issuedID uuid.UUID) (*models.IssuedCoupon, error) {
	for _, i := range r.issued {
		if i.ID == issuedID && i.CustomerID == customerID {
			return i, nil
		}
	}
	return nil, nil
}

func (r *stubCouponRepo) ListMine(_ context.Context, customerID uuid.UUID) ([]models.IssuedCoupon, error) {
	var out []models.IssuedCoupon
	for _, i := range r.issued {
		if i.CustomerID == customerID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *stubCouponRepo) Issue(_ context.Context, issued *models.IssuedCoupon) error {
	if r.issueErr != nil {
		return r.issueErr
	}
	issued.ID = uuid.New()
	r.issued = append(r.issued, issued)
	return nil
}

func TestRegisterByCodeHappyPath(t *testing.T) {
	repo := newStubCouponRepo()
	repo.coupons["WELCOME3000"] = &models.Coupon{
		ID:             uuid.New(),
		Code:           "WELCOME3000",
		Name:           "welcome coupon",
		Amount:         3000,
		MinOrderAmount: 20000,
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	customerID := uuid.New()
	dto, err := svc.RegisterByCode(context.Background(), customerID, "  WELCOME3000 ")
	if err != nil {
		t.Fatalf("RegisterByCode: %v", err)
	}
	if dto.Code != "WELCOME3000" || dto.Used {
		t.Fatalf("unexpected dto %+v", dto)
	}

	mine, err := svc.ListMine(context.Background(), customerID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].Amount != 3000 {
		t.Fatalf("unexpected list %+v", mine)
	}
}

func TestRegisterByCodeUnknownCode(t *testing.T) {
	svc, _ := NewService(newStubCouponRepo())
	if _, err := svc.RegisterByCode(context.Background(), uuid.New(), "NOPE"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegisterByCodeExpiredCoupon(t *testing.T) {
	repo := newStubCouponRepo()
	expired := time.Now().Add(-time.Hour)
	repo.coupons["OLD"] = &models.Coupon{ID: uuid.New(), Code: "OLD", ExpiresAt: &expired}
	svc, _ := NewService(repo)

	if _, err := svc.RegisterByCode(context.Background(), uuid.New(), "OLD"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterByCodeDuplicateConflicts(t *testing.T) {
	repo := newStubCouponRepo()
	repo.coupons["ONCE"] = &models.Coupon{ID: uuid.New(), Code: "ONCE"}
	repo.issueErr = errors.New(`duplicate key value violates unique constraint "idx_issued_coupons_coupon_customer"`)
	svc, _ := NewService(repo)

	if _, err := svc.RegisterByCode(context.Background(), uuid.New(), "ONCE"); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
