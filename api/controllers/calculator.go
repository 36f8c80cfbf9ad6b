package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
)

type lineEventRequest struct {
	Type    string                 `json:"type" validate:"required,oneof=selectProduct selectLot clearLot edit"`
	Product *calculator.ProductRef `json:"product"`
	Lot     *calculator.LotRef     `json:"lot"`
	Field   string                 `json:"field"`
	Value   calculator.Entry       `json:"value"`
}

type lineRequest struct {
	Line  calculator.LineState `json:"line"`
	Event lineEventRequest     `json:"event"`
}

type lineResponse struct {
	Line        calculator.LineState `json:"line"`
	AltQuantity string               `json:"altQuantity"`
	BagCount    int                  `json:"bagCount"`
}

type documentEventRequest struct {
	Type      string                 `json:"type" validate:"required,oneof=addLine removeLine editLine setDiscountTotal setPayment"`
	Index     int                    `json:"index"`
	Product   *calculator.ProductRef `json:"product"`
	LineEvent *lineEventRequest      `json:"lineEvent"`
	Value     calculator.Entry       `json:"value"`
}

type documentRequest struct {
	Document calculator.DocumentState `json:"document"`
	Event    documentEventRequest     `json:"event"`
}

func (e lineEventRequest) toEvent() (calculator.Event, error) {
	switch e.Type {
	case "selectProduct":
		if e.Product == nil || !e.Product.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selectProduct requires a product with a valid unitCategory")
		}
		return calculator.SelectProduct{Product: *e.Product}, nil
	case "selectLot":
		if e.Lot == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selectLot requires a lot")
		}
		return calculator.SelectLot{Lot: *e.Lot}, nil
	case "clearLot":
		return calculator.ClearLot{}, nil
	case "edit":
		field, err := calculator.ParseField(e.Field)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid field")
		}
		return calculator.Edit{Field: field, Value: string(e.Value)}, nil
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown event type %q", e.Type)
}

// metricField is set only for edits, whose field has been parsed.
func (e lineEventRequest) metricField() string {
	if e.Type != "edit" {
		return ""
	}
	return e.Field
}

func (e documentEventRequest) toEvent() (calculator.DocumentEvent, error) {
	switch e.Type {
	case "addLine":
		if e.Product != nil && !e.Product.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product unitCategory")
		}
		return calculator.AddLine{Product: e.Product}, nil
	case "removeLine":
		return calculator.RemoveLine{Index: e.Index}, nil
	case "editLine":
		if e.LineEvent == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "editLine requires lineEvent")
		}
		inner, err := e.LineEvent.toEvent()
		if err != nil {
			return nil, err
		}
		return calculator.EditLine{Index: e.Index, Event: inner}, nil
	case "setDiscountTotal":
		return calculator.SetDiscountTotal{Value: string(e.Value)}, nil
	case "setPayment":
		return calculator.SetPayment{Value: string(e.Value)}, nil
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown event type %q", e.Type)
}

// CalculatorLine applies one event to a line and returns the next state.
// Rejected edits come back unchanged, the same as the reducer.
func CalculatorLine(recorder *metrics.CalculatorMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := body.Event.toEvent()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line := calculator.Reduce(calculator.FromState(body.Line), event)
		recorder.Observe(body.Event.Type, body.Event.metricField())

		responses.WriteSuccess(w, lineResponse{
			Line:        calculator.ToState(line),
			AltQuantity: line.AltQuantity(),
			BagCount:    line.BagCount(),
		})
	}
}

// CalculatorDocument applies one event to a whole bill and returns the
// document with its summary.
func CalculatorDocument(recorder *metrics.CalculatorMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body documentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := body.Event.toEvent()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc := calculator.FromDocumentState(body.Document).Apply(event)
		field := ""
		if body.Event.LineEvent != nil {
			field = body.Event.LineEvent.metricField()
		}
		recorder.Observe(body.Event.Type, field)

		responses.WriteSuccess(w, calculator.ToDocumentState(doc))
	}
}
