// Package reports loads the dashboard and report views and exports
// transactions.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"exptrack/internal/core"
	"exptrack/internal/log"
)

// Messages shown when a view fails to load.
const (
	MsgDashboardFailed = "Failed to load dashboard data"
	MsgReportFailed    = "Failed to load report data"
	MsgCountryFailed   = "Failed to save country preference"
)

var ErrUnsupportedCountry = errors.New("unsupported country")

type AnalyticsAPI interface {
	Dashboard(ctx context.Context, r core.DateRange) (core.DashboardSummary, error)
	CategorySpending(ctx context.Context, r core.DateRange) ([]core.NamedAmount, error)
	MonthlyTrend(ctx context.Context, r core.DateRange) ([]core.NamedAmount, error)
	BudgetStatus(ctx context.Context) ([]core.BudgetStatus, error)
}

type ProfileAPI interface {
	Get(ctx context.Context) (core.Profile, error)
	Update(ctx context.Context, p core.Profile) (core.Profile, error)
}

// Session is the part of the session store the views read and refresh.
type Session interface {
	Identity() (core.Identity, bool)
	Refresh(ctx context.Context) error
}

type Dashboard struct {
	analytics AnalyticsAPI
	profiles  ProfileAPI
	session   Session
	logger    *log.Logger
}

func NewDashboard(analytics AnalyticsAPI, profiles ProfileAPI, session Session, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.Discard()
	}
	return &Dashboard{
		analytics: analytics,
		profiles:  profiles,
		session:   session,
		logger:    logger.WithComponent(log.ComponentApp),
	}
}

// DashboardView is one load of the dashboard.
type DashboardView struct {
	Summary core.DashboardSummary
	Range   core.DateRange
	// Country drives amount formatting. Users without one see India.
	Country string

	prompt atomic.Bool
}

// TakeCountryPrompt reports whether the country prompt should be shown.
// It returns true at most once per view.
func (v *DashboardView) TakeCountryPrompt() bool {
	return v.prompt.CompareAndSwap(true, false)
}

// Format renders amount in the viewer's currency.
func (v *DashboardView) Format(amount float64) string {
	return core.FormatAmount(amount, v.Country)
}

func (v *DashboardView) CategoryRows() [][2]string {
	return AmountRows(v.Summary.CategorySpending, v.Country)
}

func (v *DashboardView) TrendRows() [][2]string {
	return AmountRows(v.Summary.MonthlyTrend, v.Country)
}

// AmountRows pairs each label with its amount formatted for country.
func AmountRows(items []core.NamedAmount, country string) [][2]string {
	rows := make([][2]string, len(items))
	for i, it := range items {
		rows[i] = [2]string{it.Name, core.FormatAmount(it.Amount, country)}
	}
	return rows
}

// Load fetches the dashboard summary for r.
func (d *Dashboard) Load(ctx context.Context, r core.DateRange) (*DashboardView, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	identity, signedIn := d.session.Identity()

	summary, err := d.analytics.Dashboard(ctx, r)
	if err != nil {
		d.logger.ErrorContext(ctx, "Dashboard load failed", log.FieldError, err)
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	v := &DashboardView{
		Summary: summary,
		Range:   r,
		Country: core.DisplayCountry(identity),
	}
	v.prompt.Store(signedIn && identity.NeedsCountry())
	return v, nil
}

// SelectCountry saves country on the profile and refreshes the identity so
// the new currency applies immediately.
func (d *Dashboard) SelectCountry(ctx context.Context, country string) error {
	country = strings.TrimSpace(country)
	if !core.IsSupportedCountry(country) {
		return fmt.Errorf("%w: %q", ErrUnsupportedCountry, country)
	}
	profile, err := d.profiles.Get(ctx)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	profile.Country = country
	if _, err := d.profiles.Update(ctx, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	d.logger.InfoContext(ctx, "Country saved", log.FieldCountry, country)
	return d.session.Refresh(ctx)
}

// ReportData is the content of the reports page.
type ReportData struct {
	Range            core.DateRange
	CategorySpending []core.NamedAmount
	MonthlyTrend     []core.NamedAmount
	BudgetStatus     []core.BudgetStatus
}

type Reports struct {
	analytics    AnalyticsAPI
	transactions TransactionSearcher
	logger       *log.Logger
}

func NewReports(analytics AnalyticsAPI, transactions TransactionSearcher, logger *log.Logger) *Reports {
	if logger == nil {
		logger = log.Discard()
	}
	return &Reports{
		analytics:    analytics,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentExport),
	}
}

// Load fetches the three report datasets concurrently. The first failure
// cancels the others.
func (rp *Reports) Load(ctx context.Context, r core.DateRange) (ReportData, error) {
	if err := r.Validate(); err != nil {
		return ReportData{}, err
	}
	data := ReportData{Range: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.CategorySpending, err = rp.analytics.CategorySpending(gctx, r)
		return err
	})
	g.Go(func() error {
		var err error
		data.MonthlyTrend, err = rp.analytics.MonthlyTrend(gctx, r)
		return err
	})
	g.Go(func() error {
		var err error
		data.BudgetStatus, err = rp.analytics.BudgetStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		rp.logger.ErrorContext(ctx, "Report load failed", log.FieldError, err)
		return ReportData{}, fmt.Errorf("load reports: %w", err)
	}
	return data, nil
}
