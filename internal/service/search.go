package service

import (
	"context"
	"errors"
	"strings"

	"folio/internal/currency"
	"folio/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SearchView is a search result with its prices converted for display.
type SearchView struct {
	Result       models.SearchResult `json:"result"`
	Display      currency.Code       `json:"display_currency"`
	CurrentPrice decimal.Decimal     `json:"current_price"`
	Week52Low    decimal.Decimal     `json:"week52_low"`
	Week52High   decimal.Decimal     `json:"week52_high"`
}

type SearchService struct {
	searcher Searcher
	session  *Session
	conv     *currency.Converter
	log      *logrus.Logger
}

func NewSearchService(s Searcher, session *Session, conv *currency.Converter, log *logrus.Logger) *SearchService {
	return &SearchService{searcher: s, session: session, conv: conv, log: log}
}

func (s *SearchService) Search(ctx context.Context, query string, display currency.Code) (SearchView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchView{}, &models.ValidationError{Field: "q", Reason: "is required"}
	}
	if err := s.session.Check(); err != nil {
		return SearchView{}, err
	}
	res, err := s.searcher.SearchStocks(ctx, query)
	if err != nil {
		if !errors.Is(s.session.Observe(err), models.ErrAuthExpired) {
			s.log.Warnf("search %q failed: %v", query, err)
		}
		return SearchView{}, err
	}
	return SearchView{
		Result:       res,
		Display:      display,
		CurrentPrice: s.conv.Convert(res.CurrentPrice, res.Currency, display),
		Week52Low:    s.conv.Convert(res.Week52Low, res.Currency, display),
		Week52High:   s.conv.Convert(res.Week52High, res.Currency, display),
	}, nil
}
