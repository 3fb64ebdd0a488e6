// Package billing decodes and authenticates webhook events from the
// subscription billing processor. Events are decoded into one concrete type
// per kind; the service layer dispatches on the type.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pagemint/backend/internal/model"
)

var (
	ErrMalformedEvent    = errors.New("malformed billing event")
	ErrUnrecognizedEvent = errors.New("unrecognized billing event")
)

const (
	TypeCheckoutCompleted    = "checkout.session.completed"
	TypeInvoicePaid          = "invoice.paid"
	TypeInvoicePaymentFailed = "invoice.payment_failed"
	TypeSubscriptionUpdated  = "customer.subscription.updated"
	TypeSubscriptionDeleted  = "customer.subscription.deleted"
)

const (
	CheckoutModeSubscription = "subscription"
	CheckoutModePayment      = "payment"
)

// Envelope is the outer shape shared by every event.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type Event interface {
	EventID() string
	EventType() string
}

// Meta carries the envelope fields every event exposes.
type Meta struct {
	ID      string
	Type    string
	Created time.Time
}

func (m Meta) EventID() string   { return m.ID }
func (m Meta) EventType() string { return m.Type }

// CheckoutCompleted is a finished checkout. In subscription mode it starts a
// subscription; in payment mode it buys Coins of permanent currency.
type CheckoutCompleted struct {
	Meta
	Mode           string
	UserID         int64
	SubscriptionID string
	CustomerID     string
	Tier           model.SubscriptionTier
	PeriodEnd      time.Time
	Coins          int64
}

// InvoicePaid is a successful (re)billing of a subscription. PeriodEnd is the
// processor's authoritative end of the paid period.
type InvoicePaid struct {
	Meta
	SubscriptionID string
	CustomerID     string
	BillingReason  string
	PeriodEnd      time.Time
}

type InvoicePaymentFailed struct {
	Meta
	SubscriptionID string
	CustomerID     string
	AttemptCount   int
}

type SubscriptionUpdated struct {
	Meta
	SubscriptionID string
	CustomerID     string
	Status         string
	Tier           model.SubscriptionTier
	PeriodEnd      time.Time
}

// Active reports whether the processor still considers the subscription paid.
func (e *SubscriptionUpdated) Active() bool {
	return e.Status == "active" || e.Status == "trialing"
}

type SubscriptionDeleted struct {
	Meta
	SubscriptionID string
	CustomerID     string
}

type checkoutObject struct {
	Mode              string            `json:"mode"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

type invoiceObject struct {
	Subscription  string `json:"subscription"`
	Customer      string `json:"customer"`
	BillingReason string `json:"billing_reason"`
	AttemptCount  int    `json:"attempt_count"`
	PeriodEnd     int64  `json:"period_end"`
	Lines         struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

type subscriptionObject struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

// Decode parses a raw webhook body. Unknown event types yield
// ErrUnrecognizedEvent; structurally invalid payloads yield ErrMalformedEvent.
func Decode(payload []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	meta := Meta{ID: env.ID, Type: env.Type, Created: time.Unix(env.Created, 0).UTC()}

	switch env.Type {
	case TypeCheckoutCompleted:
		var obj checkoutObject
		if err := decodeObject(env, &obj); err != nil {
			return nil, err
		}
		return decodeCheckout(meta, obj)

	case TypeInvoicePaid, TypeInvoicePaymentFailed:
		var obj invoiceObject
		if err := decodeObject(env, &obj); err != nil {
			return nil, err
		}
		if obj.Subscription == "" {
			return nil, fmt.Errorf("%w: %s without subscription", ErrMalformedEvent, env.Type)
		}
		if env.Type == TypeInvoicePaymentFailed {
			return &InvoicePaymentFailed{
				Meta:           meta,
				SubscriptionID: obj.Subscription,
				CustomerID:     obj.Customer,
				AttemptCount:   obj.AttemptCount,
			}, nil
		}
		end := obj.PeriodEnd
		if len(obj.Lines.Data) > 0 && obj.Lines.Data[0].Period.End > 0 {
			end = obj.Lines.Data[0].Period.End
		}
		if end <= 0 {
			return nil, fmt.Errorf("%w: invoice without period end", ErrMalformedEvent)
		}
		return &InvoicePaid{
			Meta:           meta,
			SubscriptionID: obj.Subscription,
			CustomerID:     obj.Customer,
			BillingReason:  obj.BillingReason,
			PeriodEnd:      unix(end),
		}, nil

	case TypeSubscriptionUpdated, TypeSubscriptionDeleted:
		var obj subscriptionObject
		if err := decodeObject(env, &obj); err != nil {
			return nil, err
		}
		if obj.ID == "" {
			return nil, fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
		}
		if env.Type == TypeSubscriptionDeleted {
			return &SubscriptionDeleted{Meta: meta, SubscriptionID: obj.ID, CustomerID: obj.Customer}, nil
		}
		ev := &SubscriptionUpdated{
			Meta:           meta,
			SubscriptionID: obj.ID,
			CustomerID:     obj.Customer,
			Status:         obj.Status,
		}
		if obj.CurrentPeriodEnd > 0 {
			ev.PeriodEnd = unix(obj.CurrentPeriodEnd)
		}
		if tier, ok := obj.Metadata["tier"]; ok {
			t, err := model.ParseSubscriptionTier(tier)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
			}
			ev.Tier = t
		}
		return ev, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedEvent, env.Type)
}

func decodeObject(env Envelope, dst interface{}) error {
	if len(env.Data.Object) == 0 {
		return fmt.Errorf("%w: %s without data.object", ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Data.Object, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Type, err)
	}
	return nil
}

func decodeCheckout(meta Meta, obj checkoutObject) (*CheckoutCompleted, error) {
	ev := &CheckoutCompleted{
		Meta:           meta,
		Mode:           obj.Mode,
		SubscriptionID: obj.Subscription,
		CustomerID:     obj.Customer,
	}

	ref := obj.ClientReferenceID
	if ref == "" {
		ref = obj.Metadata["user_id"]
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: checkout without user reference", ErrMalformedEvent)
	}
	ev.UserID = userID

	switch obj.Mode {
	case CheckoutModeSubscription:
		if obj.Subscription == "" {
			return nil, fmt.Errorf("%w: subscription checkout without subscription id", ErrMalformedEvent)
		}
		tier, err := model.ParseSubscriptionTier(obj.Metadata["tier"])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Tier = tier
		if raw := obj.Metadata["current_period_end"]; raw != "" {
			end, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || end <= 0 {
				return nil, fmt.Errorf("%w: bad current_period_end %q", ErrMalformedEvent, raw)
			}
			ev.PeriodEnd = unix(end)
		}
	case CheckoutModePayment:
		coins, err := strconv.ParseInt(obj.Metadata["coins"], 10, 64)
		if err != nil || coins <= 0 {
			return nil, fmt.Errorf("%w: payment checkout without coins", ErrMalformedEvent)
		}
		ev.Coins = coins
	default:
		return nil, fmt.Errorf("%w: checkout mode %q", ErrUnrecognizedEvent, obj.Mode)
	}
	return ev, nil
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
