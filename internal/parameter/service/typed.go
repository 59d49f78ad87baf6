package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"refunds/internal/parameter/models"
	dErrors "refunds/pkg/domain-errors"
)

// Well-known parameter names consumed by the refund workflow.
const (
	ParamAllowedMethods    = "allowedMethods"
	ParamRefundTimeLimit   = "refundTimeLimit"
	ParamApprovalThreshold = "approvalThreshold"
)

// Source is anything that resolves a parameter for a merchant: the Resolver
// itself or a caching decorator around it.
type Source interface {
	ResolveForMerchant(ctx context.Context, name, merchantID string) (*models.Resolution, error)
}

// Value returns only the effective value, or ErrParameterNotFound.
func Value(ctx context.Context, src Source, name, merchantID string) (models.Value, error) {
	res, err := src.ResolveForMerchant(ctx, name, merchantID)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// ResolveWithDefault returns def when no level defines name. Other errors are
// returned unchanged.
func ResolveWithDefault(ctx context.Context, src Source, name, merchantID string, def models.Value) (models.Value, error) {
	v, err := Value(ctx, src, name, merchantID)
	if errors.Is(err, ErrParameterNotFound) {
		return def, nil
	}
	return v, err
}

// Strings resolves an ARRAY of strings. found is false when no level defines name.
func Strings(ctx context.Context, src Source, name, merchantID string) (values []string, found bool, err error) {
	v, err := Value(ctx, src, name, merchantID)
	if errors.Is(err, ErrParameterNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	values, err = models.AsStrings(v)
	if err != nil {
		return nil, false, typeMismatch(err, name)
	}
	return values, true, nil
}

// Int resolves an integral NUMBER, returning fallback when no level defines name.
func Int(ctx context.Context, src Source, name, merchantID string, fallback int) (int, error) {
	v, err := Value(ctx, src, name, merchantID)
	if errors.Is(err, ErrParameterNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := models.AsInt(v)
	if err != nil {
		return 0, typeMismatch(err, name)
	}
	return n, nil
}

// Decimal resolves a NUMBER. found is false when no level defines name.
func Decimal(ctx context.Context, src Source, name, merchantID string) (value decimal.Decimal, found bool, err error) {
	v, err := Value(ctx, src, name, merchantID)
	if errors.Is(err, ErrParameterNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := models.AsDecimal(v)
	if err != nil {
		return decimal.Zero, false, typeMismatch(err, name)
	}
	return d, true, nil
}

// Bool resolves a BOOLEAN, returning fallback when no level defines name.
func Bool(ctx context.Context, src Source, name, merchantID string, fallback bool) (bool, error) {
	v, err := Value(ctx, src, name, merchantID)
	if errors.Is(err, ErrParameterNotFound) {
		return fallback, nil
	}
	if err != nil {
		return false, err
	}
	b, err := models.AsBool(v)
	if err != nil {
		return false, typeMismatch(err, name)
	}
	return b, nil
}

func typeMismatch(err error, name string) error {
	return dErrors.Wrap(err, dErrors.CodeInvalidConfig, "parameter "+name+" has an unexpected type")
}
