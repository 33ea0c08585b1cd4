package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"adtime-landing/internal/notify"
	"adtime-landing/internal/pricing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	sourceCalculator = "Price Calculator"

	errTelegramNotConfigured = "Telegram credentials not configured"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{OK: false, Error: msg})
}

// LEADS

// handleLead serves both the API path and the legacy /send-telegram path.
// Every failure, including a malformed body, is answered with 500.
func (s *Server) handleLead(c echo.Context) error {
	var lead notify.Lead
	if err := json.NewDecoder(c.Request().Body).Decode(&lead); err != nil {
		return fail(c, http.StatusInternalServerError, fmt.Sprintf("invalid request body: %v", err))
	}
	if err := lead.Validate(); err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	return s.dispatch(c, lead)
}

func (s *Server) dispatch(c echo.Context, lead notify.Lead) error {
	lead = lead.Normalize()
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	cfg, err := s.loadNotify()
	if err != nil {
		s.logger.Error("Failed to load notify config", zap.String("request_id", requestID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	s.metrics.RecordLead(lead.Source)

	res, err := s.dispatcher.Dispatch(c.Request().Context(), lead, cfg)
	if errors.Is(err, notify.ErrTelegramNotConfigured) {
		s.logger.Error("Lead rejected: Telegram is not configured", zap.String("request_id", requestID))
		return fail(c, http.StatusInternalServerError, errTelegramNotConfigured)
	}
	if err != nil {
		s.logger.Error("Lead dispatch failed", zap.String("request_id", requestID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	s.logger.Info("Lead handled",
		zap.String("request_id", requestID),
		zap.String("source", lead.Source),
		zap.Bool("ok", res.OK))

	status := http.StatusOK
	if !res.OK {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, res)
}

// PRICE CALCULATOR

type quoteRequest struct {
	Offerings []pricing.Choice `json:"offerings" validate:"max=16,dive"`
	Duration  int              `json:"duration,omitempty" validate:"min=0,max=120"`
	Lang      string           `json:"lang,omitempty" validate:"max=16"`
}

type quoteResponse struct {
	Breakdown     pricing.PriceBreakdown `json:"breakdown"`
	Display       pricing.DisplayTotals  `json:"display"`
	Total         string                 `json:"total"`
	OldTotal      string                 `json:"oldTotal"`
	Contract      pricing.Contract       `json:"contract"`
	ContractTotal string                 `json:"contractTotal"`
}

type calculatorRequest struct {
	Selection []pricing.Choice `json:"selection" validate:"max=16,dive"`
	Duration  int              `json:"duration,omitempty" validate:"min=0,max=120"`
	Name      string           `json:"name,omitempty" validate:"max=200"`
	Contact   string           `json:"contact,omitempty" validate:"max=200"`
}

func (s *Server) handleQuote(c echo.Context) error {
	var req quoteRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if err := c.Validate(req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	tag := s.i18n.Match(req.Lang, c.Request().Header.Get("Accept-Language"))
	b := pricing.ComputeBreakdown(s.catalog, pricing.NewSelection(s.catalog, req.Offerings))
	ct, err := pricing.ComputeContract(s.catalog, b, req.Duration)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	s.localizeBreakdown(tag, b)
	s.metrics.RecordQuote()

	return c.JSON(http.StatusOK, quoteResponse{
		Breakdown:     b,
		Display:       b.Rounded(),
		Total:         pricing.FormatMoney(tag, s.catalog.Currency, b.NewTotal),
		OldTotal:      pricing.FormatMoney(tag, s.catalog.Currency, b.OldTotal),
		Contract:      ct,
		ContractTotal: pricing.FormatMoney(tag, s.catalog.Currency, ct.Total),
	})
}

// handleCalculatorSubmit prices the submitted selection and sends the
// summary as a lead. Clients send only the selection, never amounts.
func (s *Server) handleCalculatorSubmit(c echo.Context) error {
	var req calculatorRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return fail(c, http.StatusInternalServerError, fmt.Sprintf("invalid request body: %v", err))
	}
	if err := c.Validate(req); err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	b := pricing.ComputeBreakdown(s.catalog, pricing.NewSelection(s.catalog, req.Selection))
	if b.Count == 0 {
		return fail(c, http.StatusBadRequest, "no services selected")
	}
	ct, err := pricing.ComputeContract(s.catalog, b, req.Duration)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	s.metrics.RecordQuote()

	// Leads are read by the Russian speaking sales team.
	tag := language.Russian
	s.localizeBreakdown(tag, b)
	name := s.offeringName(tag)

	return s.dispatch(c, notify.Lead{
		Name:    req.Name,
		Contact: req.Contact,
		Service: pricing.ServiceNames(s.catalog, b, name),
		Budget:  pricing.FormatMoney(tag, s.catalog.Currency, b.NewTotal),
		Message: pricing.FormatQuoteSummary(s.catalog, b, ct, name, tag),
		Source:  sourceCalculator,
	})
}

func (s *Server) offeringName(tag language.Tag) pricing.Namer {
	return func(id string) string {
		return s.i18n.T(tag, "calculator.services."+id+".name")
	}
}

// label returns the translation of key, then the catalog name, then id.
func (s *Server) label(tag language.Tag, key, fallback, id string) string {
	if v, ok := s.i18n.Lookup(tag, key); ok {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return id
}

func addOnKey(offeringID, addOnID string) string {
	return "calculator.services." + offeringID + ".addOns." + addOnID
}

func budgetTierKey(offeringID, tierID string) string {
	return "calculator.services." + offeringID + ".budgetTiers." + tierID
}

// localizeBreakdown names the add-ons and budget tiers of b in place. The
// lines of a fresh breakdown are not shared with the catalog.
func (s *Server) localizeBreakdown(tag language.Tag, b pricing.PriceBreakdown) {
	for _, line := range b.Lines {
		for i, a := range line.AddOns {
			line.AddOns[i].Name = s.label(tag, addOnKey(line.OfferingID, a.ID), a.Name, a.ID)
		}
		if t := line.BudgetTier; t != nil {
			t.Name = s.label(tag, budgetTierKey(line.OfferingID, t.ID), t.Name, t.ID)
		}
	}
}

// CATALOG

type offeringView struct {
	pricing.ServiceOffering
	Name        string `json:"name"`
	Description string `json:"description"`
}

type durationView struct {
	pricing.ContractDuration
	Label string `json:"label"`
}

type catalogResponse struct {
	Language      string                 `json:"language"`
	Currency      string                 `json:"currency"`
	Discounts     []pricing.DiscountStep `json:"discounts"`
	Durations     []durationView         `json:"durations"`
	Offerings     []offeringView         `json:"offerings"`
	BudgetOptions []string               `json:"budgetOptions"`
}

func (s *Server) handleCatalog(c echo.Context) error {
	tag := s.i18n.Match(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))

	offerings := make([]offeringView, 0, len(s.catalog.Offerings))
	for _, o := range s.catalog.Offerings {
		prefix := "calculator.services." + o.ID

		// Copies, the catalog is shared between requests.
		addOns := make([]pricing.AddOn, len(o.AddOns))
		for i, a := range o.AddOns {
			a.Name = s.label(tag, addOnKey(o.ID, a.ID), a.Name, a.ID)
			addOns[i] = a
		}
		tiers := make([]pricing.BudgetTier, len(o.BudgetTiers))
		for i, t := range o.BudgetTiers {
			t.Label = s.label(tag, budgetTierKey(o.ID, t.ID), t.Label, t.ID)
			tiers[i] = t
		}
		o.AddOns, o.BudgetTiers = addOns, tiers

		offerings = append(offerings, offeringView{
			ServiceOffering: o,
			Name:            s.i18n.T(tag, prefix+".name"),
			Description:     s.i18n.T(tag, prefix+".description"),
		})
	}

	durations := make([]durationView, 0, len(s.catalog.Durations))
	for _, d := range s.catalog.Durations {
		months := strconv.Itoa(d.Months)
		durations = append(durations, durationView{
			ContractDuration: d,
			Label:            s.label(tag, "calculator.durations."+months, "", months),
		})
	}

	base, _ := tag.Base()
	return c.JSON(http.StatusOK, catalogResponse{
		Language:      base.String(),
		Currency:      s.catalog.Currency,
		Discounts:     s.catalog.Discounts,
		Durations:     durations,
		Offerings:     offerings,
		BudgetOptions: s.i18n.List(tag, "floatingBrief.questions.budget.options"),
	})
}

// HEALTH

func (s *Server) handleHealth(c echo.Context) error {
	if s.health != nil {
		if err := s.health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
