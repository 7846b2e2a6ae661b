package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
)

// retentionDays bounds purchase-log growth; entries older than this are
// pruned on every write.
const retentionDays = 90

// ServiceInterface defines the purchase-limit operations. CheckLimits is a
// pure, advisory read; RecordPurchase is the only mutation; CheckAndRecord
// is the serialized evaluate-and-commit path checkout must use.
type ServiceInterface interface {
	CheckLimits(ctx context.Context, userID string, items []models.PurchaseItem, userType string) (*models.LimitCheck, error)
	RecordPurchase(ctx context.Context, p *models.Purchase) error
	CheckAndRecord(ctx context.Context, p *models.Purchase, confirm func(context.Context) error) (*models.LimitCheck, error)
	LimitsSummary(ctx context.Context, userID string, userType string) (*models.LimitsSummary, error)
}

type service struct {
	repo   RepositoryInterface
	cfg    models.LimitConfig
	loc    *time.Location
	locks  *userLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the evaluator over an explicit limit table and the
// dispensary's local timezone, which anchors the daily and monthly windows.
func NewService(repo RepositoryInterface, cfg models.LimitConfig, loc *time.Location, logger *zap.Logger) ServiceInterface {
	return &service{
		repo:   repo,
		cfg:    cfg,
		loc:    loc,
		locks:  newUserLocks(),
		logger: logger,
		now:    time.Now,
	}
}

// windows returns the daily (local midnight) and monthly (first of month)
// anchors for the current instant.
func (s *service) windows() (dayStart, monthStart time.Time) {
	now := s.now().In(s.loc)
	dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	monthStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return dayStart, monthStart
}

// sumCategories folds purchases into per-category totals: quantity for
// flower and concentrates, THC mg for edibles, tinctures and topicals. An
// item with no THC figure counts as zero, matching the recorded data.
func sumCategories(purchases []models.Purchase) models.CategoryAmounts {
	var totals models.CategoryAmounts
	for _, p := range purchases {
		totals = addItems(totals, p.Items)
	}
	return totals
}

func addItems(totals models.CategoryAmounts, items []models.PurchaseItem) models.CategoryAmounts {
	for _, item := range items {
		switch item.ProductType {
		case models.ProductFlower:
			totals.Flower += item.Quantity
		case models.ProductConcentrates:
			totals.Concentrates += item.Quantity
		case models.ProductEdibles:
			totals.Edibles += item.THCContentMg
		case models.ProductTinctures:
			totals.Tinctures += item.THCContentMg
		case models.ProductTopicals:
			totals.Topicals += item.THCContentMg
		}
	}
	return totals
}

// validateItems rejects items the evaluator cannot account for rather than
// letting them pass limits vacuously.
func validateItems(items []models.PurchaseItem) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// CheckLimits decides whether the candidate items, added to the user's
// consumption in the current day and month, stay under every category cap.
// History fetch failures propagate so a broken store can never look like an
// empty history. The returned Remaining is daily headroom before the
// candidate purchase, floored at zero, and is filled in for every outcome.
func (s *service) CheckLimits(ctx context.Context, userID string, items []models.PurchaseItem, userType string) (*models.LimitCheck, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	dayStart, monthStart := s.windows()

	dailyHistory, err := s.repo.ListSince(ctx, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("compliance.CheckLimits: daily history: %w", err)
	}
	monthlyHistory, err := s.repo.ListSince(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("compliance.CheckLimits: monthly history: %w", err)
	}

	dailyUsed := sumCategories(dailyHistory)
	monthlyUsed := sumCategories(monthlyHistory)
	candidate := addItems(models.CategoryAmounts{}, items)

	dailyLimits := s.cfg.DailyFor(userType)
	monthlyLimits := s.cfg.MonthlyFor(userType)

	dailyBreaches := breaches(dailyUsed, candidate, dailyLimits)
	monthlyBreaches := breaches(monthlyUsed, candidate, monthlyLimits)

	// Remaining reflects headroom once the candidate purchase is counted,
	// floored at zero, so the storefront can show "you have Ng left today"
	// after this purchase goes through.
	check := &models.LimitCheck{
		Allowed:             len(dailyBreaches) == 0 && len(monthlyBreaches) == 0,
		Remaining:           remaining(add(dailyUsed, candidate), dailyLimits),
		DailyLimitReached:   len(dailyBreaches) > 0,
		MonthlyLimitReached: len(monthlyBreaches) > 0,
	}

	// Daily violations take precedence for messaging; monthly breaches get a
	// generic message since waiting out the month is the only remedy.
	switch {
	case check.DailyLimitReached:
		check.Message = dailyBreachMessage(dailyBreaches, dailyLimits)
	case check.MonthlyLimitReached:
		check.Message = "This purchase would exceed your monthly purchase limit. Please try again later."
	default:
		check.Message = "Purchase approved. Within legal limits."
	}

	if !check.Allowed {
		s.logger.Info("limit check failed",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Bool("daily", check.DailyLimitReached),
			zap.Bool("monthly", check.MonthlyLimitReached))
	}
	return check, nil
}

// breaches lists the categories whose cap the combined used+candidate total
// exceeds. Order is fixed so messages are deterministic.
func breaches(used, candidate, limits models.CategoryAmounts) []string {
	var out []string
	if used.Flower+candidate.Flower > limits.Flower {
		out = append(out, models.ProductFlower)
	}
	if used.Concentrates+candidate.Concentrates > limits.Concentrates {
		out = append(out, models.ProductConcentrates)
	}
	if used.Edibles+candidate.Edibles > limits.Edibles {
		out = append(out, models.ProductEdibles)
	}
	if used.Tinctures+candidate.Tinctures > limits.Tinctures {
		out = append(out, models.ProductTinctures)
	}
	if used.Topicals+candidate.Topicals > limits.Topicals {
		out = append(out, models.ProductTopicals)
	}
	return out
}

func dailyBreachMessage(categories []string, limits models.CategoryAmounts) string {
	var b strings.Builder
	b.WriteString("This purchase would exceed your daily purchase limit. ")
	for _, cat := range categories {
		switch cat {
		case models.ProductFlower:
			fmt.Fprintf(&b, "Flower limit: %gg/day. ", limits.Flower)
		case models.ProductConcentrates:
			fmt.Fprintf(&b, "Concentrates limit: %gg/day. ", limits.Concentrates)
		case models.ProductEdibles:
			fmt.Fprintf(&b, "Edibles limit: %gmg THC/day. ", limits.Edibles)
		case models.ProductTinctures:
			fmt.Fprintf(&b, "Tinctures limit: %gmg THC/day. ", limits.Tinctures)
		case models.ProductTopicals:
			fmt.Fprintf(&b, "Topicals limit: %gmg THC/day. ", limits.Topicals)
		}
	}
	return strings.TrimSpace(b.String())
}

func add(a, b models.CategoryAmounts) models.CategoryAmounts {
	return models.CategoryAmounts{
		Flower:       a.Flower + b.Flower,
		Concentrates: a.Concentrates + b.Concentrates,
		Edibles:      a.Edibles + b.Edibles,
		Tinctures:    a.Tinctures + b.Tinctures,
		Topicals:     a.Topicals + b.Topicals,
	}
}

func remaining(used, limits models.CategoryAmounts) models.CategoryAmounts {
	return models.CategoryAmounts{
		Flower:       max0(limits.Flower - used.Flower),
		Concentrates: max0(limits.Concentrates - used.Concentrates),
		Edibles:      max0(limits.Edibles - used.Edibles),
		Tinctures:    max0(limits.Tinctures - used.Tinctures),
		Topicals:     max0(limits.Topicals - used.Topicals),
	}
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// RecordPurchase appends the purchase to the user's log and prunes entries
// older than the retention horizon. It is only called once fulfillment is
// confirmed; use CheckAndRecord when the check must gate the commit.
func (s *service) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	if err := validateItems(p.Items); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now()
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return fmt.Errorf("compliance.RecordPurchase: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	pruned, err := s.repo.DeleteOlderThan(ctx, p.UserID, cutoff)
	if err != nil {
		// The record itself is committed; failing the whole call now would
		// make the caller retry a purchase that already counted.
		s.logger.Warn("history prune failed", zap.String("user_id", p.UserID), zap.Error(err))
		return nil
	}
	if pruned > 0 {
		s.logger.Debug("pruned history", zap.String("user_id", p.UserID), zap.Int64("rows", pruned))
	}
	return nil
}

// CheckAndRecord runs check, confirm and record as one serialized operation
// per user. The confirm hook (typically the payment call) executes between a
// passing check and the history write; if it fails nothing is recorded.
// Holding the user's lock across the whole sequence closes the race where
// two concurrent purchases each pass a check their sum would violate.
func (s *service) CheckAndRecord(ctx context.Context, p *models.Purchase, confirm func(context.Context) error) (*models.LimitCheck, error) {
	release := s.locks.acquire(p.UserID)
	defer release()

	check, err := s.CheckLimits(ctx, p.UserID, p.Items, p.UserType)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return check, models.ErrLimitExceeded
	}

	if confirm != nil {
		if err := confirm(ctx); err != nil {
			return check, err
		}
	}

	if err := s.RecordPurchase(ctx, p); err != nil {
		return check, err
	}
	return check, nil
}

// LimitsSummary reports used, cap and remaining headroom for both windows,
// for the account dashboard.
func (s *service) LimitsSummary(ctx context.Context, userID string, userType string) (*models.LimitsSummary, error) {
	dayStart, monthStart := s.windows()

	dailyHistory, err := s.repo.ListSince(ctx, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("compliance.LimitsSummary: daily history: %w", err)
	}
	monthlyHistory, err := s.repo.ListSince(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("compliance.LimitsSummary: monthly history: %w", err)
	}

	dailyUsed := sumCategories(dailyHistory)
	monthlyUsed := sumCategories(monthlyHistory)
	dailyLimits := s.cfg.DailyFor(userType)
	monthlyLimits := s.cfg.MonthlyFor(userType)

	return &models.LimitsSummary{
		Daily: models.WindowUsage{
			Used:      dailyUsed,
			Limit:     dailyLimits,
			Remaining: remaining(dailyUsed, dailyLimits),
		},
		Monthly: models.WindowUsage{
			Used:      monthlyUsed,
			Limit:     monthlyLimits,
			Remaining: remaining(monthlyUsed, monthlyLimits),
		},
	}, nil
}
