package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VoucherServiceDeps holds the collaborators of VoucherService
type VoucherServiceDeps struct {
	TxScope     TransactionScope
	Vouchers    accounting.VoucherRepository
	Permissions accounting.PermissionChecker
	Configs     accounting.AccountingPolicyConfigProvider
	Accounts    accounting.AccountLookupService
	Scopes      accounting.UserAccessScopeProvider
	Rates       *ExchangeRateService
	Events      shared.EventPublisher
	Locker      PostingLocker
	Metrics     PostingMetrics
	Logger      *zap.Logger

	// DefaultBaseCurrency is used when a company has not configured one
	DefaultBaseCurrency string
	// PostingLockTTL bounds the distributed posting lock. Default: 30s
	PostingLockTTL time.Duration
}

// VoucherService orchestrates the voucher lifecycle use cases.
// Every use case checks permissions first and then runs as one unit of work.
type VoucherService struct {
	tx          TransactionScope
	vouchers    accounting.VoucherRepository
	permissions accounting.PermissionChecker
	configs     accounting.AccountingPolicyConfigProvider
	accounts    accounting.AccountLookupService
	scopes      accounting.UserAccessScopeProvider
	rates       *ExchangeRateService
	events      shared.EventPublisher
	locker      PostingLocker
	metrics     PostingMetrics
	gates       *accounting.ApprovalPolicyService
	logger      *zap.Logger

	baseCurrency string
	lockTTL      time.Duration
	now          func() time.Time
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(deps VoucherServiceDeps) *VoucherService {
	s := &VoucherService{
		tx:           deps.TxScope,
		vouchers:     deps.Vouchers,
		permissions:  deps.Permissions,
		configs:      deps.Configs,
		accounts:     deps.Accounts,
		scopes:       deps.Scopes,
		rates:        deps.Rates,
		events:       deps.Events,
		locker:       deps.Locker,
		metrics:      deps.Metrics,
		gates:        accounting.NewApprovalPolicyService(),
		logger:       deps.Logger,
		baseCurrency: deps.DefaultBaseCurrency,
		lockTTL:      deps.PostingLockTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = noopPostingMetrics{}
	}
	if s.baseCurrency == "" {
		s.baseCurrency = valueobject.USD.String()
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Second
	}
	return s
}

// assertAll checks every permission before any repository access
func (s *VoucherService) assertAll(ctx context.Context, actor Actor, permissions ...string) error {
	for _, p := range permissions {
		if err := s.permissions.AssertOrThrow(ctx, actor.UserID, actor.CompanyID, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *VoucherService) loadConfig(ctx context.Context, companyID uuid.UUID) (accounting.ApprovalPolicyConfig, error) {
	cfg, err := s.configs.GetConfig(ctx, companyID)
	if err != nil {
		return accounting.ApprovalPolicyConfig{}, fmt.Errorf("failed to load accounting policy config: %w", err)
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = s.baseCurrency
	}
	return cfg, nil
}

func (s *VoucherService) loadForUpdate(ctx context.Context, repos TransactionalRepositories, companyID, id uuid.UUID) (*accounting.Voucher, error) {
	v, err := repos.Vouchers().FindByIDForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if v == nil {
		return nil, voucherNotFound(id)
	}
	return v, nil
}

func voucherNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(accounting.CodeVoucherNotFound, "Voucher not found").
		WithDetail("voucherId", id.String())
}

// publish hands the events of committed vouchers to the event bus. Failures are logged only.
func (s *VoucherService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish voucher events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

// content is the resolved monetary content of a create or update command
type content struct {
	currency     valueobject.Currency
	baseCurrency valueobject.Currency
	headerRate   decimal.Decimal
	lines        []accounting.VoucherLine
}

// buildContent triangulates every command line into base currency
func (s *VoucherService) buildContent(
	ctx context.Context,
	companyID uuid.UUID,
	cfg accounting.ApprovalPolicyConfig,
	currencyCode string,
	headerRate decimal.Decimal,
	date string,
	cmdLines []LineCommand,
) (content, error) {
	base, err := valueobject.NewCurrency(cfg.BaseCurrency)
	if err != nil {
		return content{}, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
	}
	cur := base
	if strings.TrimSpace(currencyCode) != "" {
		if cur, err = valueobject.NewCurrency(currencyCode); err != nil {
			return content{}, shared.NewValidationError(accounting.CodeInvalidCurrency, err.Error())
		}
	}

	switch {
	case headerRate.IsNegative():
		return content{}, shared.NewValidationError(accounting.CodeInvalidExchangeRate, "Exchange rate must be positive")
	case headerRate.IsZero() && cur == base:
		headerRate = decimal.NewFromInt(1)
	case headerRate.IsZero():
		if s.rates == nil {
			return content{}, shared.NewValidationError(accounting.CodeInvalidExchangeRate,
				fmt.Sprintf("Exchange rate %s/%s is required", cur, base))
		}
		if headerRate, err = s.rates.ResolveRate(ctx, companyID, cur.String(), base.String(), date); err != nil {
			return content{}, err
		}
	}

	lines := make([]accounting.VoucherLine, 0, len(cmdLines))
	for i, l := range cmdLines {
		lineCur := cur.String()
		if strings.TrimSpace(l.Currency) != "" {
			lineCur = l.Currency
		}
		parity := l.Parity
		if parity.IsZero() {
			if !strings.EqualFold(lineCur, cur.String()) {
				return content{}, shared.NewValidationError(accounting.CodeInvalidExchangeRate,
					fmt.Sprintf("Line %d: parity to %s is required for %s amounts", i+1, cur, lineCur)).
					WithDetail("fieldHints", []string{fmt.Sprintf("lines[%d].parity", i)})
			}
			parity = decimal.NewFromInt(1)
		}
		line, err := accounting.NewTriangulatedLine(accounting.TriangulatedLineInput{
			ID:           i + 1,
			AccountID:    l.AccountID,
			Side:         l.Side,
			Amount:       l.Amount,
			Currency:     lineCur,
			Parity:       parity,
			Notes:        l.Notes,
			CostCenterID: l.CostCenterID,
			Metadata:     l.Metadata,
		}, headerRate, base)
		if err != nil {
			return content{}, err
		}
		lines = append(lines, line)
	}

	return content{currency: cur, baseCurrency: base, headerRate: headerRate, lines: lines}, nil
}

// resolveAccounts looks line account references up by id and then, for the rest, by code.
// The result is keyed by the original reference.
func (s *VoucherService) resolveAccounts(ctx context.Context, companyID uuid.UUID, refs []string) (map[string]accounting.Account, error) {
	resolved := make(map[string]accounting.Account, len(refs))
	if len(refs) == 0 {
		return resolved, nil
	}
	byID, err := s.accounts.GetAccountsByIDs(ctx, companyID, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, a := range byID {
		resolved[a.ID] = a
	}

	var codes []string
	for _, ref := range refs {
		if _, ok := resolved[ref]; !ok {
			codes = append(codes, ref)
		}
	}
	if len(codes) == 0 {
		return resolved, nil
	}
	byCode, err := s.accounts.GetAccountsByCodes(ctx, companyID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts by code: %w", err)
	}
	for _, a := range byCode {
		resolved[a.Code] = a
	}
	return resolved, nil
}

// touchedAccounts returns the distinct resolved accounts of a voucher, ignoring unknown references
func touchedAccounts(v *accounting.Voucher, resolved map[string]accounting.Account) []accounting.Account {
	seen := make(map[string]struct{})
	out := make([]accounting.Account, 0, len(resolved))
	for _, ref := range v.AccountIDs() {
		a, ok := resolved[ref]
		if !ok {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// validateAccounts checks every line account for existence, status, role and currency policy.
// It returns the reference→id normalization map.
func validateAccounts(v *accounting.Voucher, resolved map[string]accounting.Account) (map[string]string, error) {
	normalized := make(map[string]string, len(resolved))
	for i, l := range v.Lines() {
		hint := []string{fmt.Sprintf("lines[%d].accountId", i)}
		a, ok := resolved[l.AccountID()]
		if !ok {
			return nil, shared.NewValidationError(accounting.CodeAccountNotFound,
				fmt.Sprintf("Line %d: account %q not found", l.ID(), l.AccountID())).
				WithDetail("fieldHints", hint)
		}
		if !a.Active {
			return nil, shared.NewValidationError(accounting.CodeAccountInactive,
				fmt.Sprintf("Line %d: account %s is inactive", l.ID(), a.Code)).
				WithDetail("fieldHints", hint)
		}
		if !a.IsPostable() {
			return nil, shared.NewValidationError(accounting.CodeAccountNotPostable,
				fmt.Sprintf("Line %d: account %s is a header account and cannot be posted to", l.ID(), a.Code)).
				WithDetail("fieldHints", hint)
		}
		if !a.AcceptsCurrency(l.Currency().String()) {
			return nil, shared.NewValidationError(accounting.CodeAccountCurrency,
				fmt.Sprintf("Line %d: account %s only accepts %s, got %s", l.ID(), a.Code, a.Currency, l.Currency())).
				WithDetail("fieldHints", []string{fmt.Sprintf("lines[%d].currency", i)})
		}
		normalized[l.AccountID()] = a.ID
	}
	return normalized, nil
}

// Create creates a draft voucher, optionally submitting and posting it
func (s *VoucherService) Create(ctx context.Context, actor Actor, cmd CreateVoucherCommand) (*accounting.Voucher, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "create")
	defer span.End()

	perms := []string{PermissionCreate}
	if cmd.Submit || cmd.PostImmediately {
		perms = append(perms, PermissionSubmit)
	}
	if cmd.PostImmediately {
		perms = append(perms, PermissionPost)
	}
	if err := s.assertAll(ctx, actor, perms...); err != nil {
		return nil, err
	}

	var created *accounting.Voucher
	var events []shared.DomainEvent
	err := s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		v, evs, err := s.createInTx(ctx, repos, actor, cmd)
		if err != nil {
			return err
		}
		created, events = v, evs
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, created.GetID().String(), telemetry.SpanAttrVoucherNo, created.VoucherNo())
	s.publish(ctx, events)
	s.logger.Info("Voucher created",
		zap.String("company_id", actor.CompanyID.String()),
		zap.String("voucher_id", created.GetID().String()),
		zap.String("voucher_no", created.VoucherNo()),
		zap.String("status", created.Status().String()))
	return created, nil
}

func (s *VoucherService) createInTx(ctx context.Context, repos TransactionalRepositories, actor Actor, cmd CreateVoucherCommand) (*accounting.Voucher, []shared.DomainEvent, error) {
	if !cmd.Type.IsValid() {
		return nil, nil, shared.NewValidationError(accounting.CodeInvalidVoucherType,
			fmt.Sprintf("Unknown voucher type %q", cmd.Type))
	}
	date, err := accounting.NormalizeDate(cmd.Date)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.loadConfig(ctx, actor.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.buildContent(ctx, actor.CompanyID, cfg, cmd.Currency, cmd.ExchangeRate, date, cmd.Lines)
	if err != nil {
		return nil, nil, err
	}
	number, err := repos.Numbers().Next(ctx, actor.CompanyID, cmd.Type, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate voucher number: %w", err)
	}

	v, err := accounting.NewVoucher(accounting.NewVoucherParams{
		CompanyID:    actor.CompanyID,
		VoucherNo:    number,
		Type:         cmd.Type,
		Date:         date,
		Description:  cmd.Description,
		Currency:     c.currency.String(),
		BaseCurrency: c.baseCurrency.String(),
		ExchangeRate: c.headerRate,
		Lines:        c.lines,
		Reference:    cmd.Reference,
		Metadata:     cmd.Metadata,
		CreatedBy:    actor.UserID,
		Now:          s.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	if cmd.Submit || cmd.PostImmediately {
		if v, err = s.submitVoucher(ctx, cfg, v, actor.UserID); err != nil {
			return nil, nil, err
		}
	}
	if err := repos.Vouchers().Save(ctx, v); err != nil {
		return nil, nil, fmt.Errorf("failed to save voucher: %w", err)
	}
	events := v.GetDomainEvents()

	if cmd.PostImmediately && v.Status() == accounting.VoucherStatusApproved {
		posted, postEvents, err := s.postInTx(ctx, repos, actor, v.GetID())
		if err != nil {
			return nil, nil, err
		}
		v = posted
		events = append(events, postEvents...)
	}
	return v, events, nil
}

// Update replaces the content of a voucher, resyncing ledger rows when it is already posted
func (s *VoucherService) Update(ctx context.Context, actor Actor, cmd UpdateVoucherCommand) (*accounting.Voucher, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherID, cmd.VoucherID.String())

	if err := s.assertAll(ctx, actor, PermissionUpdate); err != nil {
		return nil, err
	}

	var updated *accounting.Voucher
	err := s.tx.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		v, err := s.loadForUpdate(ctx, repos, actor.CompanyID, cmd.VoucherID)
		if err != nil {
			return err
		}
		cfg, err := s.loadConfig(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := v.AssertCanEdit(cfg.LockConfig()); err != nil {
			return err
		}
		if err := s.assertPeriodOpen(ctx, actor, cfg, v); err != nil {
			return err
		}
		if cmd.Currency != "" && !strings.EqualFold(cmd.Currency, v.Currency().String()) {
			return shared.NewValidationError(accounting.CodeInvalidCurrency, "Voucher currency cannot be changed")
		}
		cfg.BaseCurrency = v.BaseCurrency().String()

		date := v.Date()
		if cmd.Date != "" {
			if date, err = accounting.NormalizeDate(cmd.Date); err != nil {
				return err
			}
		}
		rate := cmd.ExchangeRate
		if rate.IsZero() {
			rate = v.ExchangeRate()
		}
		c, err := s.buildContent(ctx, actor.CompanyID, cfg, v.Currency().String(), rate, date, cmd.Lines)
		if err != nil {
			return err
		}

		next, err := v.WithLines(accounting.EditParams{
			Date:         date,
			Description:  cmd.Description,
			ExchangeRate: c.headerRate,
			Reference:    cmd.Reference,
			Lines:        c.lines,
			EditedBy:     actor.UserID,
			Config:       cfg.LockConfig(),
			Now:          s.now(),
		})
		if err != nil {
			return err
		}

		if next.IsPosted() {
			if next, err = s.validateForLedger(ctx, actor, cfg, next); err != nil {
				return err
			}
		}

		if err := repos.Vouchers().Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save voucher: %w", err)
		}
		if next.IsPosted() {
			if err := repos.Ledger().DeleteForVoucher(ctx, actor.CompanyID, next.GetID()); err != nil {
				return fmt.Errorf("failed to clear ledger rows: %w", err)
			}
			if err := repos.Ledger().RecordForVoucher(ctx, next); err != nil {
				return fmt.Errorf("failed to record ledger rows: %w", err)
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, updated.GetDomainEvents())
	s.logger.Info("Voucher updated",
		zap.String("voucher_id", updated.GetID().String()),
		zap.Bool("posted", updated.IsPosted()))
	return updated, nil
}

// Get returns one voucher
func (s *VoucherService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*accounting.Voucher, error) {
	if err := s.assertAll(ctx, actor, PermissionView); err != nil {
		return nil, err
	}
	v, err := s.vouchers.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if v == nil {
		return nil, voucherNotFound(id)
	}
	return v, nil
}

// List returns a page of the company's vouchers
func (s *VoucherService) List(ctx context.Context, actor Actor, q ListVouchersQuery) (shared.Paginated[*accounting.Voucher], error) {
	if err := s.assertAll(ctx, actor, PermissionView); err != nil {
		return shared.Paginated[*accounting.Voucher]{}, err
	}
	filter := accounting.VoucherFilter{
		Filter:   shared.DefaultFilter(),
		Status:   q.Status,
		Type:     q.Type,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	items, total, err := s.vouchers.FindByCompany(ctx, actor.CompanyID, filter)
	if err != nil {
		return shared.Paginated[*accounting.Voucher]{}, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.Limit()), nil
}
