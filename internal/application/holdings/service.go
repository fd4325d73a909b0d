package holdings

import (
	"context"
	"errors"
	"sort"

	"papertrade-backend/internal/application/market"
	"papertrade-backend/internal/domain"
	"papertrade-backend/internal/infrastructure/marketdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account not found")

const UnknownSector = "Unknown"

var hundred = decimal.NewFromInt(100)

// QuoteSource fetches current quotes for many symbols, best effort.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, []market.Dropped)
}

// CostSource returns weighted average buy cost per symbol.
type CostSource interface {
	AverageCosts(ctx context.Context, accountID uuid.UUID) (map[string]decimal.Decimal, error)
}

// Service values an account's positions at current market prices.
type Service struct {
	DB     *gorm.DB
	Quotes QuoteSource
	Costs  CostSource
}

type HoldingValuation struct {
	Symbol           string          `json:"symbol"`
	CompanyName      string          `json:"company_name"`
	Sector           string          `json:"sector"`
	Quantity         decimal.Decimal `json:"quantity"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	GainLoss         decimal.Decimal `json:"gain_loss"`
	GainLossPct      decimal.Decimal `json:"gain_loss_pct"`
	QuoteUnavailable bool            `json:"quote_unavailable"`
}

type SectorSlice struct {
	Sector  string          `json:"sector"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

type Summary struct {
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	GainLoss      decimal.Decimal `json:"gain_loss"`
	GainLossPct   decimal.Decimal `json:"gain_loss_pct"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Portfolio is everything the dashboard shows, valued from one quote fetch.
type Portfolio struct {
	Summary  Summary            `json:"summary"`
	Holdings []HoldingValuation `json:"holdings"`
	Sectors  []SectorSlice      `json:"sectors"`
}

// ValueHoldings values every position. A symbol whose quote cannot be fetched
// is valued at its average cost and flagged QuoteUnavailable.
func (s *Service) ValueHoldings(ctx context.Context, accountID uuid.UUID) ([]HoldingValuation, error) {
	var rows []domain.Holding
	if err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("symbol ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []HoldingValuation{}, nil
	}

	costs, err := s.Costs.AverageCosts(ctx, accountID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(rows))
	for i, h := range rows {
		symbols[i] = h.Symbol
	}
	quotes, dropped := s.Quotes.FetchQuotes(ctx, symbols)
	if len(dropped) > 0 {
		log.Warn().Str("account_id", accountID.String()).Int("unpriced", len(dropped)).Msg("holdings: valuing some positions at cost")
	}

	out := make([]HoldingValuation, 0, len(rows))
	for _, h := range rows {
		q, ok := quotes[h.Symbol]
		out = append(out, valuate(h, costs[h.Symbol], q.CurrentPrice, ok))
	}
	return out, nil
}

func valuate(h domain.Holding, avg, price decimal.Decimal, priced bool) HoldingValuation {
	v := HoldingValuation{
		Symbol:      h.Symbol,
		CompanyName: h.CompanyName,
		Sector:      h.Sector,
		Quantity:    h.Quantity,
		AvgCost:     avg,
	}
	if v.CompanyName == "" {
		v.CompanyName = h.Symbol
	}
	if v.Sector == "" {
		v.Sector = UnknownSector
	}
	if !priced {
		price = avg
		v.QuoteUnavailable = true
	}
	v.CurrentPrice = price
	v.CurrentValue = h.Quantity.Mul(price).Round(2)
	v.CostBasis = h.Quantity.Mul(avg).Round(2)
	v.GainLoss = v.CurrentValue.Sub(v.CostBasis)
	v.GainLossPct = percentOf(v.GainLoss, v.CostBasis)
	return v
}

// percentOf returns part/whole*100 rounded to 2 places, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// SectorDistribution groups current value by sector.
func (s *Service) SectorDistribution(ctx context.Context, accountID uuid.UUID) ([]SectorSlice, error) {
	vals, err := s.ValueHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return Distribution(vals), nil
}

// Distribution is empty when the total value is zero. Slices are ordered by
// value, largest first.
func Distribution(vals []HoldingValuation) []SectorSlice {
	total := decimal.Zero
	bySector := map[string]decimal.Decimal{}
	for _, v := range vals {
		total = total.Add(v.CurrentValue)
		bySector[v.Sector] = bySector[v.Sector].Add(v.CurrentValue)
	}
	out := []SectorSlice{}
	if !total.IsPositive() {
		return out
	}
	for sector, value := range bySector {
		out = append(out, SectorSlice{Sector: sector, Value: value, Percent: percentOf(value, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// Summary totals cash and positions for the account.
func (s *Service) Summary(ctx context.Context, accountID uuid.UUID) (Summary, error) {
	p, err := s.Portfolio(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}
	return p.Summary, nil
}

func (s *Service) Portfolio(ctx context.Context, accountID uuid.UUID) (*Portfolio, error) {
	var acct domain.Account
	if err := s.DB.WithContext(ctx).Where("account_id = ?", accountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	vals, err := s.ValueHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sum := Summary{Cash: acct.Balance, HoldingsValue: decimal.Zero, CostBasis: decimal.Zero}
	for _, v := range vals {
		sum.HoldingsValue = sum.HoldingsValue.Add(v.CurrentValue)
		sum.CostBasis = sum.CostBasis.Add(v.CostBasis)
	}
	sum.GainLoss = sum.HoldingsValue.Sub(sum.CostBasis)
	sum.GainLossPct = percentOf(sum.GainLoss, sum.CostBasis)
	sum.TotalValue = sum.Cash.Add(sum.HoldingsValue)

	return &Portfolio{Summary: sum, Holdings: vals, Sectors: Distribution(vals)}, nil
}
