package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"folio/internal/currency"
	"folio/internal/database"
	"folio/internal/models"
	"folio/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenSetter rotates the bearer token used for outgoing calls.
type TokenSetter interface {
	SetToken(token string)
}

// PriceHistorian is implemented by stores that keep recorded prices.
type PriceHistorian interface {
	PriceHistory(ctx context.Context, symbol string, limit int) ([]database.PricePoint, error)
}

type Deps struct {
	Portfolio   *service.Portfolio
	Coordinator *service.Coordinator
	DeleteFlow  *service.DeleteFlow
	Selection   *service.Selection
	Search      *service.SearchService
	Session     *service.Session
	Selector    *currency.Selector
	Converter   *currency.Converter
	// Tokens and History are optional.
	Tokens  TokenSetter
	History PriceHistorian
}

type Handler struct {
	Deps
	log *logrus.Logger
}

func NewHandler(d Deps, log *logrus.Logger) *Handler {
	return &Handler{Deps: d, log: log}
}

// Register mounts every route on rg.
func (h *Handler) Register(rg gin.IRouter) {
	rg.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	rg.GET("/currencies", h.GetCurrencies)
	rg.PUT("/display-currency", h.PutDisplayCurrency)

	rg.GET("/portfolio", h.GetPortfolio)
	rg.POST("/portfolio/refresh", h.PostRefresh)

	rg.POST("/holdings", h.PostHolding)
	rg.DELETE("/holdings/:symbol", h.DeleteHolding)
	rg.POST("/holdings/delete", h.PostBulkDelete)
	rg.GET("/holdings/:symbol/prices", h.GetPriceHistory)

	rg.GET("/selection", h.GetSelection)
	rg.POST("/selection", h.PostSelection)
	rg.DELETE("/selection", h.DeleteSelection)
	rg.POST("/selection/:symbol", h.ToggleSelection)

	rg.POST("/delete-requests", h.PostDeleteRequest)
	rg.GET("/delete-requests/current", h.GetDeleteRequest)
	rg.POST("/delete-requests/:id/confirm", h.ConfirmDeleteRequest)
	rg.POST("/delete-requests/:id/cancel", h.CancelDeleteRequest)

	rg.GET("/search", h.GetSearch)
	rg.PUT("/session/token", h.PutSessionToken)
}

func (h *Handler) GetCurrencies(c *gin.Context) {
	table := h.Converter.Table()
	rates := make([]gin.H, 0)
	for _, code := range table.Codes() {
		r, _ := table.Rate(code)
		rates = append(rates, gin.H{"code": code, "rate": r.String()})
	}
	c.JSON(http.StatusOK, gin.H{"reference": table.Reference(), "display": h.Selector.Current(), "rates": rates})
}

type currencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

func (h *Handler) PutDisplayCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid display currency body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code, err := h.Converter.Table().Parse(req.Currency)
	if err == nil {
		err = h.Selector.Set(code)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"display": code})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	display := h.Selector.Current()
	if q := c.Query("currency"); q != "" {
		code, err := h.Converter.Table().Parse(q)
		if err != nil {
			h.fail(c, err)
			return
		}
		display = code
	}
	c.JSON(http.StatusOK, newPortfolioView(h.Converter, h.Portfolio.Snapshot(), display))
}

func (h *Handler) PostRefresh(c *gin.Context) {
	res, err := h.Portfolio.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updated":   res.Updated,
		"failed":    res.Failed,
		"no_op":     res.NoOp,
		"notices":   notices(res.Notices),
		"portfolio": newPortfolioView(h.Converter, res.Snapshot, h.Selector.Current()),
	})
}

func (h *Handler) PostHolding(c *gin.Context) {
	var req models.NewHolding
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid holding body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Coordinator.AddHolding(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPortfolioView(h.Converter, res.Snapshot, h.Selector.Current()))
}

func (h *Handler) DeleteHolding(c *gin.Context) {
	res, err := h.Coordinator.DeleteHolding(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPortfolioView(h.Converter, res.Snapshot, h.Selector.Current()))
}

type symbolsRequest struct {
	Symbols []string `json:"symbols"`
}

func (h *Handler) PostBulkDelete(c *gin.Context) {
	var req symbolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid bulk delete body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Coordinator.DeleteHoldings(c.Request.Context(), req.Symbols)
	h.Selection.Clear()
	if err != nil {
		var berr *service.BulkDeleteError
		if !errors.As(err, &berr) {
			h.fail(c, err)
			return
		}
	}
	h.writeBulk(c, res, err)
}

func (h *Handler) writeBulk(c *gin.Context, res service.BulkDeleteResult, err error) {
	status := http.StatusOK
	body := gin.H{
		"deleted":   res.Deleted,
		"failed":    failures(res.Failed),
		"skipped":   res.Skipped,
		"portfolio": newPortfolioView(h.Converter, res.Result.Snapshot, h.Selector.Current()),
	}
	if err != nil {
		status = http.StatusMultiStatus
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

func failures(in []service.DeleteFailure) []gin.H {
	out := make([]gin.H, 0, len(in))
	for _, f := range in {
		out = append(out, gin.H{"symbol": f.Symbol, "error": f.Err.Error()})
	}
	return out
}

func (h *Handler) GetPriceHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "store does not record prices"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	points, err := h.History.PriceHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		h.log.Errorf("price history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "price history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "prices": points})
}

func (h *Handler) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": h.Selection.Symbols()})
}

// PostSelection replaces the selection; {"all": true} selects every held symbol.
func (h *Handler) PostSelection(c *gin.Context) {
	var req struct {
		Symbols []string `json:"symbols"`
		All     bool     `json:"all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.All {
		req.Symbols = h.Portfolio.Snapshot().Symbols()
	}
	h.Selection.SelectAll(req.Symbols)
	c.JSON(http.StatusOK, gin.H{"symbols": h.Selection.Symbols()})
}

func (h *Handler) DeleteSelection(c *gin.Context) {
	h.Selection.Clear()
	c.JSON(http.StatusOK, gin.H{"symbols": []string{}})
}

func (h *Handler) ToggleSelection(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if !h.Portfolio.Snapshot().Has(symbol) && !h.Selection.Has(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
		return
	}
	selected := h.Selection.Toggle(symbol)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "selected": selected, "symbols": h.Selection.Symbols()})
}

func (h *Handler) PostDeleteRequest(c *gin.Context) {
	var req symbolsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	dr, err := h.DeleteFlow.Request(req.Symbols)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dr)
}

func (h *Handler) GetDeleteRequest(c *gin.Context) {
	dr, ok := h.DeleteFlow.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"state": service.DeleteIdle})
		return
	}
	c.JSON(http.StatusOK, dr)
}

func (h *Handler) ConfirmDeleteRequest(c *gin.Context) {
	dr, err := h.DeleteFlow.Confirm(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrNoDeleteRequest) || errors.Is(err, service.ErrInvalidTransition) {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		if errors.Is(err, models.ErrAuthExpired) {
			status = http.StatusUnauthorized
		}
	}
	c.JSON(status, dr)
}

func (h *Handler) CancelDeleteRequest(c *gin.Context) {
	dr, err := h.DeleteFlow.Cancel(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dr)
}

func (h *Handler) GetSearch(c *gin.Context) {
	display := h.Selector.Current()
	view, err := h.Search.Search(c.Request.Context(), c.Query("q"), display)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":      view.Result,
		"display":     display,
		"price":       money(view.CurrentPrice, display),
		"week52_low":  money(view.Week52Low, display),
		"week52_high": money(view.Week52High, display),
	})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) PutSessionToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.Tokens != nil {
		h.Tokens.SetToken(req.Token)
	}
	h.Session.Renew()

	// A load that failed while the session was expired is retried here.
	res, err := h.Portfolio.Resync(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "renewed",
		"portfolio": newPortfolioView(h.Converter, res.Snapshot, h.Selector.Current()),
	})
}

// fail maps engine errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		verr *models.ValidationError
		serr *service.StoreOperationError
	)
	switch {
	case errors.As(err, &verr), errors.Is(err, currency.ErrUnknownCurrency):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "reauthentication required"})
	case errors.Is(err, service.ErrNoDeleteRequest), errors.Is(err, models.ErrHoldingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, models.ErrDuplicateSymbol):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &serr):
		h.log.Errorf("store operation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		h.log.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
